package task

import (
	"testing"

	"github.com/hogehogei/HogepOS/kernel/cpu"
)

// recordingCPU never transfers control: SwitchContext only records the pair,
// so the scheduler bookkeeping can be driven step by step from one goroutine.
type recordingCPU struct {
	enabled  bool
	switches []switchRecord
	entries  []cpu.TaskFunc
}

type switchRecord struct {
	next, current *cpu.TaskContext
}

type haltError string

func (r *recordingCPU) DisableInterrupts() bool {
	was := r.enabled
	r.enabled = false
	return was
}

func (r *recordingCPU) RestoreInterrupts(was bool) { r.enabled = was }

func (r *recordingCPU) SwitchContext(next, current *cpu.TaskContext) {
	if r.enabled {
		panic("SwitchContext with interrupts enabled")
	}
	r.switches = append(r.switches, switchRecord{next: next, current: current})
}

func (r *recordingCPU) EntryPoint(f cpu.TaskFunc) uint64 {
	r.entries = append(r.entries, f)
	return 0x1000 + uint64(len(r.entries))*0x10
}

func (r *recordingCPU) CR3() uint64 { return 0xabc000 }

func (r *recordingCPU) Halt(reason string) { panic(haltError(reason)) }

func newTestManager() (*Manager, *recordingCPU) {
	c := &recordingCPU{enabled: true}
	return NewManager(c), c
}

func idle(uint64, int64) {}

// expectHalt runs fn and fails unless it halts the CPU.
func expectHalt(t *testing.T, fn func()) string {
	t.Helper()
	var reason string
	func() {
		defer func() {
			r := recover()
			h, ok := r.(haltError)
			if !ok {
				t.Fatalf("recover() = %v, want halt", r)
			}
			reason = string(h)
		}()
		fn()
	}()
	return reason
}

// checkInvariant verifies that every running task is queued exactly once at
// its own level and that no other task is queued at all.
func checkInvariant(t *testing.T, m *Manager) {
	t.Helper()
	snap := m.Snapshot()
	count := map[uint64]int{}
	levelOf := map[uint64]int{}
	for lv, q := range snap {
		for _, id := range q {
			count[id]++
			levelOf[id] = lv
		}
	}
	for i := 1; i <= m.NumTasks(); i++ {
		tk, err := m.Task(uint64(i))
		if err != nil {
			t.Fatalf("Task(%d) error = %v", i, err)
		}
		switch {
		case tk.Running() && count[tk.ID()] != 1:
			t.Fatalf("running task %d queued %d times: %v", tk.ID(), count[tk.ID()], snap)
		case tk.Running() && levelOf[tk.ID()] != tk.Level():
			t.Fatalf("task %d queued at level %d, Level() = %d", tk.ID(), levelOf[tk.ID()], tk.Level())
		case !tk.Running() && count[tk.ID()] != 0:
			t.Fatalf("sleeping task %d queued %d times: %v", tk.ID(), count[tk.ID()], snap)
		}
	}
}
