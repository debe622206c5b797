package hal

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Config
	// TTY reads the keyboard from the controlling terminal.
	TTY bool
}

// RunHeadless boots k without opening a window. It returns when k returns
// or ctx is done.
func RunHeadless(ctx context.Context, cfg HeadlessConfig, k Kernel) error {
	h := newHost(cfg.Config)
	return runMachine(ctx, h, cfg.TTY, k)
}

// runMachine runs the kernel next to the host devices. The devices stop as
// soon as the kernel returns.
func runMachine(ctx context.Context, h *hostHAL, useTTY bool, k Kernel) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.t.run(ctx) })
	if useTTY {
		g.Go(func() error { return readTTY(ctx, h.kbd) })
	}
	g.Go(func() error {
		defer cancel()
		return k(ctx, h)
	})
	return g.Wait()
}
