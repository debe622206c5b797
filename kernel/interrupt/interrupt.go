// Package interrupt holds the service routines that feed the scheduler.
package interrupt

import (
	"log/slog"

	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
	"github.com/hogehogei/HogepOS/kernel/task"
	"github.com/hogehogei/HogepOS/kernel/timer"
)

// Interrupt vectors used by the kernel.
const (
	VectorXHCI       uint8 = 0x40
	VectorLAPICTimer uint8 = 0x41
)

// Controller is the interrupt side of the processor: the IF flag, a vector
// table and end-of-interrupt.
type Controller interface {
	cpu.Interrupts
	SetHandler(vector uint8, fn cpu.Handler)
	NotifyEndOfInterrupt()
}

// Dispatcher routes hardware interrupts into the timer and task managers.
// Its handlers never block: they tick, send a message, or switch tasks.
type Dispatcher struct {
	ctrl   Controller
	timers *timer.Manager
	tasks  *task.Manager

	// Counters are only touched with interrupts masked.
	timerInterrupts uint64
	xhciInterrupts  uint64
}

// NewDispatcher returns a dispatcher; call Install to hook it up.
func NewDispatcher(ctrl Controller, timers *timer.Manager, tasks *task.Manager) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, timers: timers, tasks: tasks}
}

// Install registers the service routines.
func (d *Dispatcher) Install() {
	d.ctrl.SetHandler(VectorLAPICTimer, d.LAPICTimer)
	d.ctrl.SetHandler(VectorXHCI, d.XHCI)
}

// LAPICTimer advances the tick count and preempts when the quantum expired.
// The interrupt is acknowledged before switching, since the switch does not
// return until this task runs again.
func (d *Dispatcher) LAPICTimer() {
	d.timerInterrupts++
	switchDue := d.timers.Tick()
	d.ctrl.NotifyEndOfInterrupt()
	if switchDue {
		d.tasks.SwitchTask(false)
	}
}

// XHCI tells the main task that the USB controller has events to drain.
func (d *Dispatcher) XHCI() {
	d.xhciInterrupts++
	msg := event.Message{Event: event.InterruptXHCI{}}
	if err := d.tasks.SendMessage(task.MainTaskID, msg); err != nil {
		// The main task exists from boot to halt; this only fires if the
		// dispatcher was installed on a foreign manager.
		slog.Warn("xhci interrupt dropped", slog.Any("err", err))
	}
	d.ctrl.NotifyEndOfInterrupt()
}

// Stats returns the number of timer and xHCI interrupts serviced.
func (d *Dispatcher) Stats() (timerCount, xhciCount uint64) {
	defer cpu.Enter(d.ctrl).Leave()
	return d.timerInterrupts, d.xhciInterrupts
}
