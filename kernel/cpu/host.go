package cpu

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	hostEntryBase uint64 = 0xffff_8000_0010_0000
	hostEntryStep uint64 = 0x10
	hostCR3       uint64 = 0x0000_0000_0010_1000
)

// Host is a single processor modelled on the host.
//
// Every task context is backed by a goroutine, and exactly one of them is on
// the CPU at any time; SwitchContext hands the CPU over and parks the caller.
// Interrupts raised by device goroutines stay pending until the goroutine on
// the CPU reaches an interrupt window: EnableInterrupts, RestoreInterrupts
// with IF set, Poll, or Hlt. The handler then runs on that goroutine, the
// same way a real handler runs on the interrupted task's stack.
//
// Stop powers the processor off: every goroutine backing a task context
// exits at its next interrupt window or context switch.
type Host struct {
	mu      sync.Mutex
	pending [4]uint64
	wake    chan struct{}

	// Owned by the goroutine on the CPU.
	enabled  bool
	handlers [256]Handler
	entries  []TaskFunc
	threads  map[*TaskContext]*thread

	eoi    atomic.Uint64
	halted chan struct{}
	reason atomic.Value // string

	haltOnce    sync.Once
	haltHandler atomic.Value // func(HaltInfo)

	stopOnce sync.Once
	stopped  chan struct{}
}

type thread struct {
	resume chan struct{}
}

// NewHost returns a processor with interrupts masked, as after boot.
func NewHost() *Host {
	return &Host{
		wake:    make(chan struct{}, 1),
		threads: make(map[*TaskContext]*thread),
		halted:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Stop powers the processor off. It is safe to call from any goroutine and
// more than once.
func (h *Host) Stop() {
	h.stopOnce.Do(func() { close(h.stopped) })
}

// exitIfStopped ends the calling task context after Stop.
func (h *Host) exitIfStopped() {
	select {
	case <-h.stopped:
		runtime.Goexit()
	default:
	}
}

// Park blocks the calling task context until Stop.
func (h *Host) Park() {
	<-h.stopped
	runtime.Goexit()
}

// SetHandler installs the service routine for a vector.
func (h *Host) SetHandler(vector uint8, fn Handler) {
	h.handlers[vector] = fn
}

// NotifyEndOfInterrupt acknowledges the in-service interrupt.
func (h *Host) NotifyEndOfInterrupt() {
	h.eoi.Add(1)
}

// EndOfInterrupts returns how many interrupts were acknowledged.
func (h *Host) EndOfInterrupts() uint64 {
	return h.eoi.Load()
}

// Raise marks a vector pending. It is safe to call from any goroutine.
func (h *Host) Raise(vector uint8) {
	h.mu.Lock()
	h.pending[vector/64] |= 1 << (vector % 64)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// takePending removes the highest pending vector.
func (h *Host) takePending() (uint8, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.pending) - 1; i >= 0; i-- {
		w := h.pending[i]
		if w == 0 {
			continue
		}
		for bit := 63; bit >= 0; bit-- {
			if w&(1<<bit) != 0 {
				h.pending[i] &^= 1 << bit
				return uint8(i*64 + bit), true
			}
		}
	}
	return 0, false
}

func (h *Host) hasPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.pending {
		if w != 0 {
			return true
		}
	}
	return false
}

func (h *Host) deliver() {
	for h.enabled {
		h.exitIfStopped()
		v, ok := h.takePending()
		if !ok {
			return
		}
		fn := h.handlers[v]
		if fn == nil {
			slog.Debug("spurious interrupt", slog.Int("vector", int(v)))
			continue
		}
		h.enabled = false
		fn()
		h.enabled = true
	}
}

// DisableInterrupts implements Interrupts (cli).
func (h *Host) DisableInterrupts() bool {
	was := h.enabled
	h.enabled = false
	return was
}

// RestoreInterrupts implements Interrupts.
func (h *Host) RestoreInterrupts(wasEnabled bool) {
	if !wasEnabled {
		return
	}
	h.enabled = true
	h.deliver()
}

// EnableInterrupts sets IF (sti) and takes anything pending.
func (h *Host) EnableInterrupts() {
	h.enabled = true
	h.deliver()
}

// InterruptsEnabled reports the state of IF.
func (h *Host) InterruptsEnabled() bool {
	return h.enabled
}

// Poll is an interrupt window for code that runs without other kernel calls.
func (h *Host) Poll() {
	h.exitIfStopped()
	if h.enabled {
		h.deliver()
	}
}

// Hlt waits for the next interrupt and services it. With interrupts masked
// it never returns, like hlt under cli.
func (h *Host) Hlt() {
	if !h.enabled {
		h.Halt("hlt with interrupts disabled")
	}
	for !h.hasPending() {
		select {
		case <-h.wake:
		case <-h.halted:
			h.Park()
		case <-h.stopped:
			runtime.Goexit()
		}
	}
	h.deliver()
}

// EntryPoint implements CPU.
func (h *Host) EntryPoint(f TaskFunc) uint64 {
	h.entries = append(h.entries, f)
	return hostEntryBase + uint64(len(h.entries)-1)*hostEntryStep
}

func (h *Host) entry(rip uint64) TaskFunc {
	if rip < hostEntryBase || (rip-hostEntryBase)%hostEntryStep != 0 {
		return nil
	}
	i := (rip - hostEntryBase) / hostEntryStep
	if i >= uint64(len(h.entries)) {
		return nil
	}
	return h.entries[i]
}

// CR3 implements CPU.
func (h *Host) CR3() uint64 { return hostCR3 }

// SwitchContext implements CPU.
func (h *Host) SwitchContext(next, current *TaskContext) {
	if next == current {
		return
	}
	current.RFLAGS = RFLAGSReserved
	if h.enabled {
		current.RFLAGS |= RFLAGSInterrupt
	}

	cur := h.threadOf(current)
	nt, ok := h.threads[next]
	if !ok {
		nt = h.start(next)
	}
	h.enabled = next.InterruptsEnabled()

	select {
	case nt.resume <- struct{}{}:
	case <-h.stopped:
		runtime.Goexit()
	}
	select {
	case <-cur.resume:
	case <-h.stopped:
		runtime.Goexit()
	}
}

func (h *Host) threadOf(ctx *TaskContext) *thread {
	t, ok := h.threads[ctx]
	if !ok {
		t = &thread{resume: make(chan struct{})}
		h.threads[ctx] = t
	}
	return t
}

func (h *Host) start(ctx *TaskContext) *thread {
	f := h.entry(ctx.RIP)
	if f == nil {
		h.Halt(fmt.Sprintf("switch to context with invalid rip %#x", ctx.RIP))
	}
	t := h.threadOf(ctx)
	id, data := ctx.RDI, int64(ctx.RSI)
	go func() {
		select {
		case <-t.resume:
		case <-h.stopped:
			return
		}
		f(id, data)
		h.Halt(fmt.Sprintf("task %d: entry point returned", id))
	}()
	return t
}

// Halt implements CPU. The calling goroutine never returns; it exits once
// the processor is stopped.
func (h *Host) Halt(reason string) {
	h.enabled = false
	h.reason.Store(reason)
	slog.Error("kernel halted", slog.String("reason", reason))
	h.triggerHalt(reason)
	select {
	case <-h.halted:
	default:
		close(h.halted)
	}
	h.Park()
}

// Done is closed once the processor halts.
func (h *Host) Done() <-chan struct{} {
	return h.halted
}

// HaltReason returns the reason given to Halt, if any.
func (h *Host) HaltReason() string {
	s, _ := h.reason.Load().(string)
	return s
}
