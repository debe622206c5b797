package cpu

import (
	"reflect"
	"testing"
	"time"
	"unsafe"
)

func TestTaskContextLayout(t *testing.T) {
	var c TaskContext
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"CR3", unsafe.Offsetof(c.CR3), 0x00},
		{"CS", unsafe.Offsetof(c.CS), 0x20},
		{"RAX", unsafe.Offsetof(c.RAX), 0x40},
		{"RSP", unsafe.Offsetof(c.RSP), 0x70},
		{"R8", unsafe.Offsetof(c.R8), 0x80},
		{"FXSave", unsafe.Offsetof(c.FXSave), 0xc0},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Fatalf("offset of %s = %#x, want %#x", o.name, o.got, o.want)
		}
	}
	if got := unsafe.Sizeof(c); got != 0xc0+512 {
		t.Fatalf("Sizeof(TaskContext) = %#x, want %#x", got, 0xc0+512)
	}
}

func TestTaskContextMXCSR(t *testing.T) {
	var c TaskContext
	c.SetMXCSR(MXCSRMaskAll)
	if got := c.MXCSR(); got != MXCSRMaskAll {
		t.Fatalf("MXCSR() = %#x, want %#x", got, MXCSRMaskAll)
	}
	if c.FXSave[24] != 0x80 || c.FXSave[25] != 0x1f {
		t.Fatalf("fxsave[24:26] = %#x %#x, want 0x80 0x1f", c.FXSave[24], c.FXSave[25])
	}
}

func TestSectionRestoresPriorState(t *testing.T) {
	h := NewHost()
	h.EnableInterrupts()

	outer := Enter(h)
	if h.InterruptsEnabled() {
		t.Fatal("interrupts enabled inside section")
	}
	inner := Enter(h)
	inner.Leave()
	if h.InterruptsEnabled() {
		t.Fatal("nested Leave re-enabled interrupts")
	}
	outer.Leave()
	if !h.InterruptsEnabled() {
		t.Fatal("outer Leave did not restore interrupts")
	}
}

func TestHostDeliversAtInterruptWindow(t *testing.T) {
	h := NewHost()
	var order []uint8
	h.SetHandler(0x40, func() { order = append(order, 0x40) })
	h.SetHandler(0x41, func() {
		if h.InterruptsEnabled() {
			t.Error("handler ran with interrupts enabled")
		}
		order = append(order, 0x41)
	})

	h.Raise(0x40)
	h.Raise(0x41)
	h.Poll()
	if len(order) != 0 {
		t.Fatalf("delivered %v while masked", order)
	}

	h.EnableInterrupts()
	if want := []uint8{0x41, 0x40}; !reflect.DeepEqual(order, want) {
		t.Fatalf("delivery order = %v, want %v", order, want)
	}
	if !h.InterruptsEnabled() {
		t.Fatal("interrupts not re-enabled after handlers")
	}
}

func TestHostHltWaitsForInterrupt(t *testing.T) {
	h := NewHost()
	fired := 0
	h.SetHandler(0x41, func() { fired++ })
	h.EnableInterrupts()

	go func() {
		time.Sleep(5 * time.Millisecond)
		h.Raise(0x41)
	}()
	h.Hlt()
	if fired != 1 {
		t.Fatalf("handler fired %d times, want 1", fired)
	}
}

func TestHostSwitchContextTransfersControl(t *testing.T) {
	h := NewHost()
	var boot, task TaskContext
	var trace []string

	task.RIP = h.EntryPoint(func(id uint64, data int64) {
		if id != 2 || data != -7 {
			t.Errorf("entry(%d, %d), want entry(2, -7)", id, data)
		}
		if !h.InterruptsEnabled() {
			t.Error("task started with interrupts masked")
		}
		trace = append(trace, "task")
		h.SwitchContext(&boot, &task)
		trace = append(trace, "task resumed")
		h.SwitchContext(&boot, &task)
		select {}
	})
	task.RDI = 2
	task.RSI = uint64(0xffff_ffff_ffff_fff9) // -7
	task.RFLAGS = RFLAGSTaskInit

	h.SwitchContext(&task, &boot)
	trace = append(trace, "boot")
	if h.InterruptsEnabled() {
		t.Fatal("boot resumed with interrupts enabled")
	}
	if boot.InterruptsEnabled() {
		t.Fatal("saved boot RFLAGS has IF set")
	}
	if !task.InterruptsEnabled() {
		t.Fatal("saved task RFLAGS lost IF")
	}

	h.SwitchContext(&task, &boot)
	trace = append(trace, "boot again")

	want := []string{"task", "boot", "task resumed", "boot again"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
}

func TestHostEntryPointIsStable(t *testing.T) {
	h := NewHost()
	a := h.EntryPoint(func(uint64, int64) {})
	b := h.EntryPoint(func(uint64, int64) {})
	if a == b {
		t.Fatalf("EntryPoint() returned %#x twice", a)
	}
	if h.entry(a) == nil || h.entry(b) == nil {
		t.Fatal("registered entry point not resolvable")
	}
	if h.entry(a+1) != nil {
		t.Fatal("misaligned rip resolved to an entry point")
	}
}

// waitClosed fails the test unless ch is closed within a second.
func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("%s still running after Stop", what)
	}
}

func TestHostStopEndsTaskContexts(t *testing.T) {
	h := NewHost()
	var boot, spin TaskContext
	spinning := make(chan struct{})
	spinExited := make(chan struct{})
	bootExited := make(chan struct{})

	spin.RIP = h.EntryPoint(func(uint64, int64) {
		defer close(spinExited)
		close(spinning)
		for {
			h.Poll()
		}
	})
	spin.RFLAGS = RFLAGSTaskInit

	go func() {
		defer close(bootExited)
		h.SwitchContext(&spin, &boot)
		t.Error("boot context resumed after Stop")
	}()

	<-spinning
	h.Stop()
	h.Stop()
	waitClosed(t, spinExited, "spinning task")
	waitClosed(t, bootExited, "parked boot context")
}

func TestHostStopEndsHlt(t *testing.T) {
	h := NewHost()
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		h.EnableInterrupts()
		h.Hlt()
		t.Error("Hlt() returned without an interrupt")
	}()

	h.Stop()
	waitClosed(t, exited, "halted idle loop")
}

func TestHaltHandlerPerHost(t *testing.T) {
	for i, reason := range []string{"first machine", "second machine"} {
		h := NewHost()
		calls := 0
		var got HaltInfo
		h.SetHaltHandler(func(info HaltInfo) {
			calls++
			got = info
		})

		exited := make(chan struct{})
		go func() {
			defer close(exited)
			h.Halt(reason)
		}()
		select {
		case <-h.Done():
		case <-time.After(time.Second):
			t.Fatalf("machine %d: Done() not closed after Halt", i)
		}

		if calls != 1 || got.Reason != reason || len(got.Stack) == 0 {
			t.Fatalf("machine %d: handler calls = %d, info = %q, want 1 call with %q and a stack", i, calls, got.Reason, reason)
		}
		if h.HaltReason() != reason {
			t.Fatalf("machine %d: HaltReason() = %q, want %q", i, h.HaltReason(), reason)
		}
		h.Stop()
		waitClosed(t, exited, "halted context")
	}
}
