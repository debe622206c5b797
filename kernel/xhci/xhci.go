// Package xhci models the USB host controller as seen by the kernel: a
// primary event ring filled by the device side and an interrupt line.
package xhci

import (
	"sync"

	"github.com/hogehogei/HogepOS/kernel/keyboard"
)

// DefaultRingSize is the number of event slots in the primary ring.
const DefaultRingSize = 32

// Event is a HID keyboard transfer event.
type Event struct {
	Modifier uint8
	KeyCode  uint8
}

// Controller is a host controller with a bounded event ring. The ring is
// shared with the device side, which runs outside the kernel, so it has its
// own lock.
type Controller struct {
	mu      sync.Mutex
	ring    []Event
	size    int
	dropped uint64

	interrupt func()
}

// NewController returns a controller that calls interrupt whenever the
// device side posts an event.
func NewController(size int, interrupt func()) *Controller {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Controller{size: size, interrupt: interrupt}
}

// Post enqueues an event from the device side and raises the interrupt. A
// full ring drops the event.
func (c *Controller) Post(ev Event) bool {
	c.mu.Lock()
	if len(c.ring) >= c.size {
		c.dropped++
		c.mu.Unlock()
		return false
	}
	c.ring = append(c.ring, ev)
	c.mu.Unlock()

	if c.interrupt != nil {
		c.interrupt()
	}
	return true
}

// HasFront reports whether the ring holds an event.
func (c *Controller) HasFront() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ring) > 0
}

// Pop removes the oldest event.
func (c *Controller) Pop() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ring) == 0 {
		return Event{}, false
	}
	ev := c.ring[0]
	copy(c.ring, c.ring[1:])
	c.ring = c.ring[:len(c.ring)-1]
	return ev, true
}

// Dropped returns the number of events lost to a full ring.
func (c *Controller) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// ProcessEvents drains the ring into the keyboard driver. It runs in the main
// task after an InterruptXHCI message, never in the interrupt handler.
func ProcessEvents(c *Controller, kbd *keyboard.Driver) error {
	for {
		ev, ok := c.Pop()
		if !ok {
			return nil
		}
		if err := kbd.OnReport(ev.Modifier, ev.KeyCode); err != nil {
			return err
		}
	}
}
