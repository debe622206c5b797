package cpu

import "encoding/binary"

// Segment selectors installed by the kernel GDT.
const (
	KernelCS uint64 = 1 << 3
	KernelSS uint64 = 2 << 3
)

const (
	// RFLAGSInterrupt is the interrupt-enable flag (IF).
	RFLAGSInterrupt uint64 = 1 << 9
	// RFLAGSReserved is bit 1, which always reads as one.
	RFLAGSReserved uint64 = 1 << 1

	// RFLAGSTaskInit is the flag state a fresh task starts with.
	RFLAGSTaskInit = RFLAGSInterrupt | RFLAGSReserved
)

// MXCSRMaskAll masks every SSE floating-point exception.
const MXCSRMaskAll uint32 = 0x1f80

const mxcsrOffset = 24

// TaskContext is the saved register state of a task that is not running.
//
// The layout is consumed by the context switch primitive and must not change:
//
//	0x00 cr3, rip, rflags, reserved
//	0x20 cs, ss, fs, gs
//	0x40 rax, rbx, rcx, rdx, rdi, rsi, rsp, rbp
//	0x80 r8..r15
//	0xc0 fxsave area (512 bytes)
type TaskContext struct {
	CR3, RIP, RFLAGS, Reserved1 uint64
	CS, SS, FS, GS              uint64

	RAX, RBX, RCX, RDX, RDI, RSI, RSP, RBP uint64
	R8, R9, R10, R11, R12, R13, R14, R15   uint64

	FXSave [512]byte
}

// MXCSR returns the SSE control/status word stored in the fxsave area.
func (c *TaskContext) MXCSR() uint32 {
	return binary.LittleEndian.Uint32(c.FXSave[mxcsrOffset : mxcsrOffset+4])
}

// SetMXCSR stores the SSE control/status word into the fxsave area.
func (c *TaskContext) SetMXCSR(v uint32) {
	binary.LittleEndian.PutUint32(c.FXSave[mxcsrOffset:mxcsrOffset+4], v)
}

// InterruptsEnabled reports whether resuming the context re-enables interrupts.
func (c *TaskContext) InterruptsEnabled() bool {
	return c.RFLAGS&RFLAGSInterrupt != 0
}
