package task

import (
	"unsafe"

	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
)

// DefaultStackSize is the stack given to every task, in bytes.
const DefaultStackSize = 4096

// Task is one schedulable unit: an id, a stack, a saved register context and
// a mailbox.
//
// Running means "present in a run queue". Only the head of the current
// level's queue is actually executing.
type Task struct {
	m       *Manager
	id      uint64
	stack   []uint64
	ctx     cpu.TaskContext
	msgs    mailbox
	level   int
	running bool
}

func (t *Task) ID() uint64 { return t.id }

// Level returns the priority level the task runs (or last ran) at.
func (t *Task) Level() int { return t.level }

// Running reports whether the task is in a run queue.
func (t *Task) Running() bool { return t.running }

// Context returns the saved register state. It is only meaningful while the
// task is not executing.
func (t *Task) Context() *cpu.TaskContext { return &t.ctx }

// SetLevel sets the level used by the next Wakeup with KeepLevel. Use it
// before the task is admitted; a running task changes level through Wakeup.
func (t *Task) SetLevel(level int) *Task {
	t.level = clampLevel(level)
	return t
}

// InitContext prepares the task so that switching to it calls f(id, data) on
// its own stack with interrupts enabled.
func (t *Task) InitContext(f cpu.TaskFunc, data int64) *Task {
	t.stack = make([]uint64, DefaultStackSize/8)
	stackEnd := uint64(uintptr(unsafe.Pointer(&t.stack[len(t.stack)-1]))) + 8

	t.ctx = cpu.TaskContext{}
	t.ctx.RIP = t.m.cpu.EntryPoint(f)
	t.ctx.RDI = t.id
	t.ctx.RSI = uint64(data)

	t.ctx.CR3 = t.m.cpu.CR3()
	t.ctx.RFLAGS = cpu.RFLAGSTaskInit
	t.ctx.CS = cpu.KernelCS
	t.ctx.SS = cpu.KernelSS
	// The entry is reached as if by call: rsp+8 is 16-byte aligned.
	t.ctx.RSP = (stackEnd &^ 0xf) - 8

	t.ctx.SetMXCSR(cpu.MXCSRMaskAll)
	return t
}

// Sleep removes the task from its run queue. A task sleeping itself returns
// only after someone wakes it again.
func (t *Task) Sleep() *Task {
	t.m.Sleep(t)
	return t
}

// Wakeup admits the task at its remembered level.
func (t *Task) Wakeup() *Task {
	t.m.Wakeup(t, KeepLevel)
	return t
}

// WakeupAt admits the task at level, or moves it there if already running.
func (t *Task) WakeupAt(level int) *Task {
	t.m.Wakeup(t, level)
	return t
}

// SendMessage appends msg to the mailbox and wakes the task.
func (t *Task) SendMessage(msg event.Message) {
	defer cpu.Enter(t.m.cpu).Leave()
	t.msgs.push(msg)
	t.m.Wakeup(t, KeepLevel)
}

// ReceiveMessage pops the oldest message. It never blocks; callers that get
// false sleep and try again when woken.
func (t *Task) ReceiveMessage() (event.Message, bool) {
	defer cpu.Enter(t.m.cpu).Leave()
	return t.msgs.pop()
}

// PendingMessages returns the number of queued messages.
func (t *Task) PendingMessages() int {
	defer cpu.Enter(t.m.cpu).Leave()
	return t.msgs.len()
}
