package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/layer"
)

type testFB struct {
	w, h int
	buf  []byte
}

func newTestFB(w, h int) *testFB {
	return &testFB{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *testFB) Width() int              { return f.w }
func (f *testFB) Height() int             { return f.h }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return f.w * 2 }
func (f *testFB) Buffer() []byte          { return f.buf }
func (f *testFB) Present() error          { return nil }

func (f *testFB) ClearRGB(r, g, b uint8) {
	p := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i], f.buf[i+1] = byte(p), byte(p>>8)
	}
}

func (f *testFB) at(x, y int) uint16 {
	off := y*f.w*2 + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

type testHAL struct {
	fb    *testFB
	keys  chan hal.KeyEvent
	ticks chan uint64
}

func newTestHAL() *testHAL {
	return &testHAL{
		fb:    newTestFB(640, 400),
		keys:  make(chan hal.KeyEvent, 16),
		ticks: make(chan uint64),
	}
}

func (h *testHAL) Display() hal.Display { return h }
func (h *testHAL) Input() hal.Input     { return h }
func (h *testHAL) Time() hal.Time       { return h }

func (h *testHAL) Framebuffer() hal.Framebuffer { return h.fb }
func (h *testHAL) Keyboard() hal.Keyboard       { return h }
func (h *testHAL) Events() <-chan hal.KeyEvent  { return h.keys }
func (h *testHAL) Ticks() <-chan uint64         { return h.ticks }

// clock feeds ticks until done is closed.
func (h *testHAL) clock(done <-chan struct{}) {
	for seq := uint64(1); ; seq++ {
		select {
		case h.ticks <- seq:
		case <-done:
			return
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestRunPowersOff(t *testing.T) {
	h := newTestHAL()
	for _, r := range "hi\n" {
		h.keys <- hal.KeyEvent{Press: true, Rune: r}
	}
	shot := filepath.Join(t.TempDir(), "screen.png")

	done := make(chan struct{})
	go h.clock(done)
	r, err := Run(context.Background(), h, Config{Ticks: 300, Counters: 2, Screenshot: shot})
	close(done)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if r.Ticks < 300 || r.TimerInterrupts < 300 {
		t.Fatalf("Ticks = %d, TimerInterrupts = %d, want >= 300", r.Ticks, r.TimerInterrupts)
	}
	// main, idle, terminal and two counters
	if r.Tasks != 5 {
		t.Fatalf("Tasks = %d, want 5", r.Tasks)
	}
	for i, c := range r.Counters {
		if c == 0 {
			t.Fatalf("counter %d never ran", i)
		}
	}
	if len(r.Terminal) == 0 || r.Terminal[0] != "hi" {
		t.Fatalf("Terminal = %q, want first line %q", r.Terminal, "hi")
	}
	if r.XHCIInterrupts == 0 {
		t.Fatal("no xhci interrupts serviced")
	}
	if _, err := os.Stat(shot); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
}

// waitGoroutines fails the test unless the goroutine count drops back to n.
func waitGoroutines(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > n {
		if time.Now().After(deadline) {
			t.Fatalf("%d goroutines running after Run returned, want %d", runtime.NumGoroutine(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newTestHAL()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	before := runtime.NumGoroutine()
	done := make(chan struct{})
	go h.clock(done)

	_, err := Run(ctx, h, Config{Counters: 1})
	close(done)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want %v", err, context.DeadlineExceeded)
	}
	// A counter task never sleeps; it must not keep spinning once the
	// machine is gone.
	waitGoroutines(t, before)
}

func TestRunPowersOffAtConfiguredRate(t *testing.T) {
	h := newTestHAL()
	done := make(chan struct{})
	go h.clock(done)
	r, err := Run(context.Background(), h, Config{Ticks: 50, Counters: 1, TimerHz: 1000})
	close(done)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r.Ticks < 50 {
		t.Fatalf("Ticks = %d, want >= 50", r.Ticks)
	}
	if r.Counters[0] == 0 {
		t.Fatal("counter never ran at 1000 Hz")
	}
}

func TestTerminalLineEditing(t *testing.T) {
	m := layer.NewManager(newTestFB(320, 200), desktopColor)
	var ran []string
	term := newTerminal(m.NewWindow(300, 180, "terminal"), func(line string) string {
		ran = append(ran, line)
		return "ok"
	})

	for _, c := range []byte("ab\bc\n") {
		term.input(c)
	}
	term.blink()
	term.input('x')

	if len(ran) != 1 || ran[0] != "ac" {
		t.Fatalf("executed %q, want [\"ac\"]", ran)
	}
	got := term.history()
	if strings.Join(got, "|") != "ac|x" {
		t.Fatalf("history() = %q, want [ac x]", got)
	}
	if term.cursor {
		t.Fatal("cursor still shown after input")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("display gone") }

func TestTerminalLogsWriteError(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	m := layer.NewManager(newTestFB(320, 200), desktopColor)
	term := newTerminal(m.NewWindow(300, 180, "terminal"), func(string) string { return "" })
	term.out = failingWriter{}
	term.input('a')

	if !strings.Contains(logs.String(), "display gone") {
		t.Fatalf("log = %q, want the write error", logs.String())
	}
	if got := term.history(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("history() = %q, want [a]", got)
	}
}

func TestDrawHaltScreen(t *testing.T) {
	fb := newTestFB(120, 60)
	drawHaltScreen(fb, cpu.HaltInfo{Reason: "no task at current level 1"})

	if got := fb.at(119, 59); got != 0x8000 {
		t.Fatalf("background = %#04x, want %#04x", got, 0x8000)
	}
	white := 0
	for y := 0; y < fb.h; y++ {
		for x := 0; x < fb.w; x++ {
			if fb.at(x, y) == 0xFFFF {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatal("halt screen has no text")
	}
}
