package cpu

// TaskFunc is a task entry point. It receives the task id and the argument
// given to InitContext.
//
// An entry point must never return; it loops over its mailbox and sleeps when
// there is nothing to do. Returning halts the machine.
type TaskFunc func(taskID uint64, data int64)

// Handler is an interrupt service routine. It runs with interrupts masked.
type Handler func()

// Interrupts is the interrupt-enable flag of the processor.
type Interrupts interface {
	// DisableInterrupts clears IF and reports whether it was set.
	DisableInterrupts() (wasEnabled bool)
	// RestoreInterrupts sets IF back to a state returned by DisableInterrupts.
	RestoreInterrupts(wasEnabled bool)
}

// CPU is everything the scheduler needs from the processor.
//
// SwitchContext is the only operation that reads or writes raw register
// state. It saves the live state into current and resumes next; it returns
// when some later switch resumes current again.
type CPU interface {
	Interrupts

	SwitchContext(next, current *TaskContext)

	// EntryPoint returns the instruction address that starts f.
	EntryPoint(f TaskFunc) uint64

	// CR3 returns the active page-table root.
	CR3() uint64

	// Halt stops the processor after a kernel invariant violation. It does
	// not return.
	Halt(reason string)
}

// Section is an interrupt-masked critical section.
//
//	defer cpu.Enter(c).Leave()
type Section struct {
	c       Interrupts
	restore bool
}

// Enter masks interrupts and returns the section that restores them.
func Enter(c Interrupts) Section {
	return Section{c: c, restore: c.DisableInterrupts()}
}

// Leave restores the interrupt flag to its state before Enter.
func (s Section) Leave() {
	s.c.RestoreInterrupts(s.restore)
}
