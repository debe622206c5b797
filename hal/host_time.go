package hal

import (
	"context"
	"time"
)

// hostTime is the local APIC timer: a ticker at a fixed rate.
type hostTime struct {
	ch     chan uint64
	seq    uint64
	period time.Duration
}

func newHostTime(hz int) *hostTime {
	if hz <= 0 {
		hz = defaultTimerHz
	}
	return &hostTime{
		ch:     make(chan uint64, 64),
		period: time.Second / time.Duration(hz),
	}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// run drives the tick stream until ctx is done.
func (t *hostTime) run(ctx context.Context) error {
	tk := time.NewTicker(t.period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			t.stepN(1)
		}
	}
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
