package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/interrupt"
	"github.com/hogehogei/HogepOS/kernel/keyboard"
	"github.com/hogehogei/HogepOS/kernel/xhci"
)

// ErrHalted is returned by Run when the kernel stopped on a fatal error.
var ErrHalted = errors.New("kernel halted")

// Config selects what the kernel runs.
type Config struct {
	// Ticks powers the machine off after this many timer ticks; 0 runs
	// until the context is done.
	Ticks uint64
	// Counters is the number of busy counter tasks.
	Counters int
	// Screenshot, if set, is where the screen is saved at power off.
	Screenshot string
	// TimerHz is the rate of the local APIC timer; 0 means timer.Frequency.
	TimerHz int
}

// Report is the machine state captured by the main task at power off.
type Report struct {
	Ticks           uint64
	Tasks           int
	TimerInterrupts uint64
	XHCIInterrupts  uint64
	DroppedKeys     uint64
	SkippedDraws    uint64
	Counters        []uint64
	Terminal        []string
}

// Kernel adapts Run to a hal runner and logs the power-off report.
func Kernel(cfg Config) hal.Kernel {
	return func(ctx context.Context, h hal.HAL) error {
		r, err := Run(ctx, h, cfg)
		if err != nil {
			return err
		}
		slog.Info("power off",
			slog.Uint64("ticks", r.Ticks),
			slog.Int("tasks", r.Tasks),
			slog.Uint64("timer_interrupts", r.TimerInterrupts),
			slog.Uint64("xhci_interrupts", r.XHCIInterrupts),
			slog.Any("counters", r.Counters),
		)
		return nil
	}
}

// Run boots the kernel on h and blocks until the machine powers off, halts,
// or ctx is done.
func Run(ctx context.Context, h hal.HAL, cfg Config) (Report, error) {
	if cfg.Counters < 0 {
		cfg.Counters = 0
	}
	c := cpu.NewHost()
	k := &kernel{
		cfg: cfg,
		h:   h,
		c:   c,
		xhc: xhci.NewController(xhci.DefaultRingSize, func() { c.Raise(interrupt.VectorXHCI) }),
		off: make(chan struct{}),
	}
	installHaltScreen(c, h)

	ctx, stopDevices := context.WithCancel(ctx)
	defer stopDevices()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return k.timerDevice(gctx) })
	g.Go(func() error { return k.keyboardDevice(gctx) })

	go k.boot()

	var err error
	select {
	case <-k.off:
	case <-c.Done():
		err = fmt.Errorf("%w: %s", ErrHalted, c.HaltReason())
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.Stop()
	stopDevices()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return Report{}, err
	}
	return k.report, nil
}

// timerDevice is the local APIC timer: every hal tick raises its vector.
func (k *kernel) timerDevice(ctx context.Context) error {
	ticks := k.h.Time().Ticks()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			k.c.Raise(interrupt.VectorLAPICTimer)
		}
	}
}

// keyboardDevice is the USB keyboard: host key events become HID reports on
// the controller's event ring.
func (k *kernel) keyboardDevice(ctx context.Context) error {
	in := k.h.Input()
	if in == nil || in.Keyboard() == nil {
		return nil
	}
	events := in.Keyboard().Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Press || ev.Rune <= 0 || ev.Rune > 0x7f {
				continue
			}
			key, ok := keyboard.FromASCII(byte(ev.Rune))
			if !ok {
				continue
			}
			k.xhc.Post(xhci.Event{Modifier: key.Modifier, KeyCode: key.KeyCode})
		}
	}
}
