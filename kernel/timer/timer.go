// Package timer keeps the kernel tick count and the deadline-ordered set of
// armed timers.
package timer

import (
	"container/heap"
	"log/slog"
	"math"

	"github.com/hogehogei/HogepOS/internal/logging"
	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
)

const (
	// Frequency is the default number of ticks per second.
	Frequency = 100

	// TaskTimerPeriod is the scheduling quantum in ticks (20ms) at Frequency.
	TaskTimerPeriod = Frequency * 2 / 100
	// TaskTimerValue marks the scheduler timer. It never reaches a mailbox.
	TaskTimerValue = math.MinInt

	sentinelValue = -1

	// mainTaskID receives timeouts of timers that name no task.
	mainTaskID = 1
)

// Timer fires once the tick count reaches Timeout.
type Timer struct {
	Timeout uint64
	Value   int
	// TaskID receives the TimerTimeout message; 0 means the main task.
	TaskID uint64
}

// Sender delivers messages to task mailboxes without blocking.
type Sender interface {
	SendMessage(id uint64, msg event.Message) error
}

type timerHeap []Timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].Timeout < h[j].Timeout }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(Timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Manager advances the tick count and fires due timers.
type Manager struct {
	cpu    cpu.Interrupts
	send   Sender
	hz     int
	period uint64
	tick   uint64
	timers timerHeap
}

// NewManager returns a manager ticking at Frequency. See NewManagerHz.
func NewManager(c cpu.Interrupts, send Sender) *Manager {
	return NewManagerHz(c, send, Frequency)
}

// NewManagerHz returns a manager at tick 0 whose only timer is a sentinel
// that never expires. hz is the rate the timer interrupt calls Tick; the
// scheduling quantum stays 20ms, but never less than one tick.
func NewManagerHz(c cpu.Interrupts, send Sender, hz int) *Manager {
	if hz <= 0 {
		hz = Frequency
	}
	m := &Manager{cpu: c, send: send, hz: hz, period: uint64(hz * 2 / 100)}
	if m.period == 0 {
		m.period = 1
	}
	heap.Push(&m.timers, Timer{Timeout: math.MaxUint64, Value: sentinelValue})
	return m
}

// Hz returns the number of ticks per second.
func (m *Manager) Hz() int { return m.hz }

// Quantum returns the scheduling quantum in ticks.
func (m *Manager) Quantum() uint64 { return m.period }

// AddTimer arms t.
func (m *Manager) AddTimer(t Timer) {
	defer cpu.Enter(m.cpu).Leave()
	heap.Push(&m.timers, t)
}

// ArmScheduler arms the recurring scheduler timer one period from now.
func (m *Manager) ArmScheduler() {
	defer cpu.Enter(m.cpu).Leave()
	heap.Push(&m.timers, Timer{Timeout: m.tick + m.period, Value: TaskTimerValue})
}

// CurrentTick returns the tick count.
func (m *Manager) CurrentTick() uint64 {
	defer cpu.Enter(m.cpu).Leave()
	return m.tick
}

// Pending returns the number of armed timers.
func (m *Manager) Pending() int {
	defer cpu.Enter(m.cpu).Leave()
	return len(m.timers) - 1
}

// Tick advances the count by one and fires every due timer. It reports
// whether the scheduler timer fired, i.e. whether the caller should switch
// tasks.
//
// Tick is called from the timer interrupt handler with interrupts masked.
func (m *Manager) Tick() bool {
	defer cpu.Enter(m.cpu).Leave()

	m.tick++
	switchDue := false
	for next := m.timers[0].Timeout; next != math.MaxUint64 && next <= m.tick; next = m.timers[0].Timeout {
		t := heap.Pop(&m.timers).(Timer)
		if t.Value == TaskTimerValue {
			switchDue = true
			heap.Push(&m.timers, Timer{Timeout: m.tick + m.period, Value: TaskTimerValue})
			continue
		}

		id := t.TaskID
		if id == 0 {
			id = mainTaskID
		}
		msg := event.Message{Event: event.TimerTimeout{Timeout: t.Timeout, Value: t.Value}}
		if err := m.send.SendMessage(id, msg); err != nil {
			// The owner is gone; nobody is left to care about the timeout.
			slog.Debug("timer timeout dropped", slog.Uint64("task", id), slog.Any("err", err))
			continue
		}
		logging.VDebug("timer", "timeout",
			slog.Uint64("tick", m.tick), slog.Uint64("task", id), slog.Int("value", t.Value))
	}
	return switchDue
}
