package app

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/internal/logging"
	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
	"github.com/hogehogei/HogepOS/kernel/interrupt"
	"github.com/hogehogei/HogepOS/kernel/keyboard"
	"github.com/hogehogei/HogepOS/kernel/layer"
	"github.com/hogehogei/HogepOS/kernel/task"
	"github.com/hogehogei/HogepOS/kernel/timer"
	"github.com/hogehogei/HogepOS/kernel/xhci"
)

// Timer values the main task arms for itself.
const (
	statusTimerValue   = 1
	shutdownTimerValue = 2
)

// Task levels.
const (
	idleLevel     = 0
	counterLevel  = task.DefaultLevel
	terminalLevel = 2
)

var desktopColor = color.RGBA{0x45, 0x76, 0x8e, 0xff}

// kernel is everything KernelMain builds. Apart from cfg, h, c, xhc and off,
// which exist before boot, it is only touched by code running on the CPU.
type kernel struct {
	cfg Config
	h   hal.HAL
	c   *cpu.Host
	xhc *xhci.Controller
	off chan struct{}

	tasks    *task.Manager
	timers   *timer.Manager
	dispatch *interrupt.Dispatcher
	kbd      *keyboard.Driver
	layers   *layer.Manager

	main       *task.Task
	terminalID uint64
	termWin    *layer.Window
	statusWin  *layer.Window
	counterWin []*layer.Window
	counts     []uint64
	term       *terminal

	report Report
}

// boot runs on the boot context, which becomes the main task. Interrupts are
// masked until the scheduler is ready.
func (k *kernel) boot() {
	k.tasks = task.NewManager(k.c)
	k.main = k.tasks.CurrentTask()
	k.timers = timer.NewManagerHz(k.c, k.tasks, k.cfg.TimerHz)
	k.dispatch = interrupt.NewDispatcher(k.c, k.timers, k.tasks)
	k.dispatch.Install()
	k.kbd = keyboard.NewDriver(k.tasks, task.MainTaskID)

	var fb hal.Framebuffer = nullFramebuffer{}
	if d := k.h.Display(); d != nil && d.Framebuffer() != nil {
		fb = d.Framebuffer()
	}
	k.layers = layer.NewManager(fb, desktopColor)
	k.createWindows()

	k.tasks.NewTask().InitContext(k.idleTask, 0).SetLevel(idleLevel).Wakeup()
	term := k.tasks.NewTask().InitContext(k.terminalTask, 0).SetLevel(terminalLevel)
	k.terminalID = term.ID()
	term.Wakeup()
	k.counts = make([]uint64, k.cfg.Counters)
	for i := 0; i < k.cfg.Counters; i++ {
		k.tasks.NewTask().InitContext(k.counterTask, int64(i)).SetLevel(counterLevel).Wakeup()
	}

	k.timers.ArmScheduler()
	k.timers.AddTimer(timer.Timer{Timeout: uint64(k.timers.Hz()), Value: statusTimerValue})
	if k.cfg.Ticks > 0 {
		k.timers.AddTimer(timer.Timer{Timeout: k.cfg.Ticks, Value: shutdownTimerValue})
	}
	slog.Info("kernel started",
		slog.Int("tasks", k.tasks.NumTasks()),
		slog.Int("counters", k.cfg.Counters),
		slog.Uint64("power_off_tick", k.cfg.Ticks))

	k.c.EnableInterrupts()
	k.mainLoop()
}

func (k *kernel) createWindows() {
	k.termWin = k.layers.NewWindow(300, 180, "terminal")
	k.term = newTerminal(k.termWin, k.execute)
	k.statusWin = k.layers.NewWindow(200, 56, "status")
	k.counterWin = make([]*layer.Window, k.cfg.Counters)
	for i := range k.counterWin {
		k.counterWin[i] = k.layers.NewWindow(160, 44, fmt.Sprintf("counter %d", i))
	}

	place := func(w *layer.Window, x, y int) {
		if err := k.layers.Move(w.ID(), x, y); err != nil {
			slog.Warn("place window", slog.Any("err", err))
		}
	}
	place(k.termWin, 20, 20)
	place(k.statusWin, 340, 20)
	for i, w := range k.counterWin {
		place(w, 340, 90+i*52)
	}
	k.drawStatus()
}

// mainLoop is the main task: it owns the compositor and the USB controller
// and serves every other task through its mailbox.
func (k *kernel) mainLoop() {
	in := newInbox(k, k.main)
	for {
		msg := in.next()
		switch ev := msg.Event.(type) {
		case event.InterruptXHCI:
			if err := xhci.ProcessEvents(k.xhc, k.kbd); err != nil {
				slog.Warn("xhci events", slog.Any("err", err))
			}
		case event.KeyPush:
			k.forward(k.terminalID, msg)
		case event.Layer:
			if err := k.layers.Apply(ev); err != nil {
				slog.Warn("layer request", slog.Uint64("src", msg.Src), slog.Any("err", err))
			}
			k.forward(msg.Src, event.Message{Src: k.main.ID(), Event: event.LayerFinish{LayerID: ev.LayerID}})
		case event.TimerTimeout:
			switch ev.Value {
			case statusTimerValue:
				k.drawStatus()
				k.timers.AddTimer(timer.Timer{Timeout: ev.Timeout + uint64(k.timers.Hz()), Value: statusTimerValue})
			case shutdownTimerValue:
				k.powerOff()
			}
		default:
			slog.Debug("unhandled message", slog.String("type", msg.Type().String()), slog.Uint64("src", msg.Src))
		}
	}
}

func (k *kernel) forward(id uint64, msg event.Message) {
	if err := k.tasks.SendMessage(id, msg); err != nil {
		slog.Warn("message dropped", slog.String("type", msg.Type().String()), slog.Any("err", err))
	}
}

func (k *kernel) drawStatus() {
	timerCount, _ := k.dispatch.Stats()
	k.statusWin.WriteString(0, 0, fmt.Sprintf("tick %d", k.timers.CurrentTick()), layer.TextColor)
	k.statusWin.WriteString(0, 1, fmt.Sprintf("tasks %d  irq %d", k.tasks.NumTasks(), timerCount), layer.TextColor)
	if err := k.layers.Draw(k.statusWin.ID()); err != nil {
		slog.Warn("draw status", slog.Any("err", err))
	}
}

// powerOff records the report and stops the machine. The CPU stays with the
// main task, interrupts masked, until Run stops the processor.
func (k *kernel) powerOff() {
	k.c.DisableInterrupts()
	timerCount, xhciCount := k.dispatch.Stats()
	k.report = Report{
		Ticks:           k.timers.CurrentTick(),
		Tasks:           k.tasks.NumTasks(),
		TimerInterrupts: timerCount,
		XHCIInterrupts:  xhciCount,
		DroppedKeys:     k.xhc.Dropped(),
		SkippedDraws:    k.layers.Skipped(),
		Counters:        append([]uint64(nil), k.counts...),
		Terminal:        k.term.history(),
	}
	if k.cfg.Screenshot != "" {
		if err := k.layers.SavePNG(k.cfg.Screenshot); err != nil {
			slog.Warn("screenshot", slog.String("path", k.cfg.Screenshot), slog.Any("err", err))
		}
	}
	close(k.off)
	k.c.Park()
}

// inbox is a task's blocking view of its mailbox. Messages that arrive while
// the task waits for a specific reply are kept for later.
type inbox struct {
	k        *kernel
	t        *task.Task
	deferred []event.Message
}

func newInbox(k *kernel, t *task.Task) *inbox {
	return &inbox{k: k, t: t}
}

// next returns the oldest message, sleeping until one arrives.
func (in *inbox) next() event.Message {
	if len(in.deferred) > 0 {
		msg := in.deferred[0]
		in.deferred = in.deferred[1:]
		return msg
	}
	return in.receive()
}

func (in *inbox) receive() event.Message {
	c := in.k.c
	for {
		// Masked so that a message cannot arrive between the empty check
		// and Sleep.
		c.DisableInterrupts()
		msg, ok := in.t.ReceiveMessage()
		if ok {
			c.EnableInterrupts()
			return msg
		}
		in.t.Sleep()
		c.EnableInterrupts()
	}
}

// drawLayer asks the main task to draw layer id and waits until it has.
func (in *inbox) drawLayer(id uint32) {
	in.k.forward(task.MainTaskID, event.Message{
		Src:   in.t.ID(),
		Event: event.Layer{Op: event.LayerDraw, LayerID: id},
	})
	for {
		msg := in.receive()
		if fin, ok := msg.Event.(event.LayerFinish); ok && fin.LayerID == id {
			logging.VDebug("sched", "layer finished", slog.Uint64("task", in.t.ID()), slog.Uint64("layer", uint64(id)))
			return
		}
		in.deferred = append(in.deferred, msg)
	}
}

type nullFramebuffer struct{}

func (nullFramebuffer) Width() int              { return 0 }
func (nullFramebuffer) Height() int             { return 0 }
func (nullFramebuffer) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (nullFramebuffer) StrideBytes() int        { return 0 }
func (nullFramebuffer) Buffer() []byte          { return nil }
func (nullFramebuffer) ClearRGB(r, g, b uint8)  {}
func (nullFramebuffer) Present() error          { return nil }
