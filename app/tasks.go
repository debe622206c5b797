package app

import (
	"fmt"
	"log/slog"

	"github.com/hogehogei/HogepOS/kernel/event"
	"github.com/hogehogei/HogepOS/kernel/layer"
	"github.com/hogehogei/HogepOS/kernel/timer"
)

const (
	cursorTimerValue  = 1
	counterDrawPeriod = 1 << 14
)

// cursorBlinkTicks is half a second of ticks.
func (k *kernel) cursorBlinkTicks() uint64 {
	return max(uint64(k.timers.Hz()/2), 1)
}

// idleTask keeps the lowest level non-empty so there is always something to
// switch to.
func (k *kernel) idleTask(taskID uint64, _ int64) {
	slog.Debug("idle task started", slog.Uint64("task", taskID))
	for {
		k.c.Hlt()
	}
}

// terminalTask echoes keys typed on the keyboard and blinks a cursor.
func (k *kernel) terminalTask(taskID uint64, _ int64) {
	t, err := k.tasks.Task(taskID)
	if err != nil {
		k.c.Halt(err.Error())
	}
	in := newInbox(k, t)
	k.timers.AddTimer(timer.Timer{
		Timeout: k.timers.CurrentTick() + k.cursorBlinkTicks(),
		Value:   cursorTimerValue,
		TaskID:  taskID,
	})
	in.drawLayer(k.termWin.ID())

	for {
		msg := in.next()
		switch ev := msg.Event.(type) {
		case event.KeyPush:
			k.term.input(ev.ASCII)
		case event.TimerTimeout:
			if ev.Value != cursorTimerValue {
				continue
			}
			k.term.blink()
			k.timers.AddTimer(timer.Timer{
				Timeout: ev.Timeout + k.cursorBlinkTicks(),
				Value:   cursorTimerValue,
				TaskID:  taskID,
			})
		default:
			continue
		}
		in.drawLayer(k.termWin.ID())
	}
}

// execute runs one terminal command line.
func (k *kernel) execute(line string) string {
	switch line {
	case "":
		return ""
	case "ticks":
		return fmt.Sprintf("%d", k.timers.CurrentTick())
	case "tasks":
		snap := k.tasks.Snapshot()
		return fmt.Sprintf("%d tasks, run queues %v", k.tasks.NumTasks(), snap)
	}
	return "unknown command: " + line
}

// counterTask counts as fast as it can and shows the count in its window.
// It never sleeps, so only the timer takes the CPU away from it.
func (k *kernel) counterTask(taskID uint64, data int64) {
	t, err := k.tasks.Task(taskID)
	if err != nil {
		k.c.Halt(err.Error())
	}
	in := newInbox(k, t)
	win := k.counterWin[data]

	for count := uint64(1); ; count++ {
		k.counts[data] = count
		if count%counterDrawPeriod == 1 {
			win.WriteString(0, 0, fmt.Sprintf("%010d", count), layer.TextColor)
			in.drawLayer(win.ID())
		}
		k.c.Poll()
	}
}
