package cpu

import "runtime/debug"

// HaltInfo describes why the machine stopped.
type HaltInfo struct {
	Reason string
	Stack  []byte
}

// SetHaltHandler installs the routine run when this processor halts.
//
// The handler is invoked at most once, on the first halt. It must not halt.
func (h *Host) SetHaltHandler(fn func(HaltInfo)) {
	h.haltHandler.Store(fn)
}

func (h *Host) triggerHalt(reason string) {
	h.haltOnce.Do(func() {
		info := HaltInfo{Reason: reason, Stack: debug.Stack()}
		if fn, ok := h.haltHandler.Load().(func(HaltInfo)); ok && fn != nil {
			fn(info)
		}
	})
}
