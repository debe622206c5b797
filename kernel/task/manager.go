package task

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hogehogei/HogepOS/internal/logging"
	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
)

const (
	// MaxLevel is the most urgent priority level.
	MaxLevel = 3
	// DefaultLevel is the level of a task that was never given one.
	DefaultLevel = 1
	// KeepLevel makes Wakeup use the task's remembered level.
	KeepLevel = -1

	// MainTaskID is the boot context, adopted as the first task.
	MainTaskID uint64 = 1
)

// ErrNoSuchTask is returned when an id does not name a task.
var ErrNoSuchTask = errors.New("no such task")

// Manager owns every task and the per-level run queues.
//
// All state is guarded by masking interrupts; there is a single CPU and the
// interrupt handlers reach the manager only through SendMessage and
// SwitchTask.
type Manager struct {
	cpu   cpu.CPU
	tasks []*Task

	running      [MaxLevel + 1]runQueue
	currentLevel int
	// levelChanged defers the search for a higher level to the next switch.
	levelChanged bool
}

// NewManager adopts the calling context as task 1, running at MaxLevel.
func NewManager(c cpu.CPU) *Manager {
	m := &Manager{cpu: c, currentLevel: MaxLevel}
	t := m.NewTask()
	t.level = m.currentLevel
	t.running = true
	m.running[m.currentLevel].pushBack(t.id)
	return m
}

// NewTask allocates the next task id. The task is not runnable until it is
// given a context and woken.
func (m *Manager) NewTask() *Task {
	defer cpu.Enter(m.cpu).Leave()
	t := &Task{
		m:     m,
		id:    uint64(len(m.tasks)) + 1,
		level: DefaultLevel,
	}
	m.tasks = append(m.tasks, t)
	return t
}

// Task resolves an id.
func (m *Manager) Task(id uint64) (*Task, error) {
	defer cpu.Enter(m.cpu).Leave()
	return m.lookup(id)
}

func (m *Manager) lookup(id uint64) (*Task, error) {
	if id == 0 || id > uint64(len(m.tasks)) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNoSuchTask)
	}
	return m.tasks[id-1], nil
}

// CurrentTask returns the executing task: the head of the current level.
func (m *Manager) CurrentTask() *Task {
	defer cpu.Enter(m.cpu).Leave()
	return m.current()
}

func (m *Manager) current() *Task {
	q := m.running[m.currentLevel]
	if q.empty() {
		m.cpu.Halt(fmt.Sprintf("no task at current level %d", m.currentLevel))
	}
	return m.tasks[q.front()-1]
}

// CurrentLevel returns the level being served.
func (m *Manager) CurrentLevel() int {
	defer cpu.Enter(m.cpu).Leave()
	return m.currentLevel
}

// SwitchTask rotates the current level and resumes its new head, or the head
// of the highest non-empty level if a level change is pending. With
// currentSleep the outgoing task is dropped instead of requeued; the caller
// has already marked it not running.
func (m *Manager) SwitchTask(currentSleep bool) {
	defer cpu.Enter(m.cpu).Leave()

	cur := m.rotate(currentSleep)
	next := m.current()
	if next == cur {
		return
	}
	logging.VDebug("sched", "switch",
		slog.Uint64("from", cur.id), slog.Uint64("to", next.id), slog.Int("level", m.currentLevel))
	m.cpu.SwitchContext(&next.ctx, &cur.ctx)
}

func (m *Manager) rotate(currentSleep bool) *Task {
	q := &m.running[m.currentLevel]
	if q.empty() {
		m.cpu.Halt(fmt.Sprintf("switch with empty level %d", m.currentLevel))
	}
	cur := m.tasks[q.popFront()-1]
	if !currentSleep {
		q.pushBack(cur.id)
	}
	if q.empty() {
		m.levelChanged = true
	}

	if m.levelChanged {
		m.levelChanged = false
		lv := m.highestLevel()
		if lv < 0 {
			m.cpu.Halt("no runnable task")
		}
		m.currentLevel = lv
	}
	return cur
}

func (m *Manager) highestLevel() int {
	for lv := MaxLevel; lv >= 0; lv-- {
		if !m.running[lv].empty() {
			return lv
		}
	}
	return -1
}

// Sleep takes t out of the run queues. If t is executing, the CPU goes to the
// next runnable task and Sleep returns once t is woken and scheduled again.
func (m *Manager) Sleep(t *Task) {
	defer cpu.Enter(m.cpu).Leave()

	if !t.running {
		return
	}
	t.running = false

	if t.id == m.running[m.currentLevel].front() {
		cur := m.rotate(true)
		next := m.current()
		logging.VDebug("sched", "sleep",
			slog.Uint64("task", cur.id), slog.Uint64("next", next.id))
		m.cpu.SwitchContext(&next.ctx, &cur.ctx)
		return
	}

	m.running[t.level].erase(t.id)
}

// SleepID is Sleep by id.
func (m *Manager) SleepID(id uint64) error {
	t, err := m.Task(id)
	if err != nil {
		return err
	}
	m.Sleep(t)
	return nil
}

// Wakeup makes t runnable at level, or at its remembered level for
// KeepLevel. A task that is already running only changes level.
//
// Waking a task above the current level does not preempt here; the scheduler
// picks it up at the next SwitchTask.
func (m *Manager) Wakeup(t *Task, level int) {
	defer cpu.Enter(m.cpu).Leave()

	if t.running {
		m.changeLevelRunning(t, level)
		return
	}

	if level < 0 {
		level = t.level
	}
	level = clampLevel(level)

	t.level = level
	t.running = true
	m.running[level].pushBack(t.id)
	if level > m.currentLevel {
		m.levelChanged = true
	}
}

// WakeupID is Wakeup by id.
func (m *Manager) WakeupID(id uint64, level int) error {
	t, err := m.Task(id)
	if err != nil {
		return err
	}
	m.Wakeup(t, level)
	return nil
}

func (m *Manager) changeLevelRunning(t *Task, level int) {
	if level < 0 {
		return
	}
	level = clampLevel(level)
	if level == t.level {
		return
	}

	if t.id != m.running[m.currentLevel].front() {
		m.running[t.level].erase(t.id)
		m.running[level].pushBack(t.id)
		t.level = level
		if level > m.currentLevel {
			m.levelChanged = true
		}
		return
	}

	// The executing task keeps the CPU: it goes to the front of its new
	// level and that level becomes current. Any higher level that became
	// runnable meanwhile is found by the rescan at the next switch.
	m.running[m.currentLevel].popFront()
	m.running[level].pushFront(t.id)
	t.level = level
	if level < m.currentLevel {
		m.levelChanged = true
	}
	m.currentLevel = level
}

// SendMessage appends msg to the mailbox of task id and wakes it. It never
// blocks and may be called from interrupt handlers.
func (m *Manager) SendMessage(id uint64, msg event.Message) error {
	defer cpu.Enter(m.cpu).Leave()

	t, err := m.lookup(id)
	if err != nil {
		return err
	}
	t.msgs.push(msg)
	m.Wakeup(t, KeepLevel)
	return nil
}

// Snapshot returns a copy of every run queue, indexed by level.
func (m *Manager) Snapshot() [MaxLevel + 1][]uint64 {
	defer cpu.Enter(m.cpu).Leave()
	var out [MaxLevel + 1][]uint64
	for lv := range m.running {
		out[lv] = append([]uint64(nil), m.running[lv]...)
	}
	return out
}

// NumTasks returns how many tasks exist.
func (m *Manager) NumTasks() int {
	defer cpu.Enter(m.cpu).Leave()
	return len(m.tasks)
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
