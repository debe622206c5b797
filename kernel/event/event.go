// Package event defines the messages delivered to task mailboxes.
package event

// Type discriminates the event carried by a Message.
type Type uint8

const (
	TypeNone Type = iota
	TypeInterruptXHCI
	TypeInterruptLAPICTimer
	TypeTimerTimeout
	TypeKeyPush
	TypeLayer
	TypeLayerFinish
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeInterruptXHCI:
		return "interrupt-xhci"
	case TypeInterruptLAPICTimer:
		return "interrupt-lapic-timer"
	case TypeTimerTimeout:
		return "timer-timeout"
	case TypeKeyPush:
		return "key-push"
	case TypeLayer:
		return "layer"
	case TypeLayerFinish:
		return "layer-finish"
	default:
		return "unknown"
	}
}

// Event is the payload of a Message. The set of implementations is closed.
type Event interface {
	Type() Type
	isEvent()
}

// Message is one asynchronous event. It is always copied by value.
type Message struct {
	// Src is the id of the sending task, or 0 for the kernel.
	Src   uint64
	Event Event
}

// Type returns the discriminator of the carried event.
func (m Message) Type() Type {
	if m.Event == nil {
		return TypeNone
	}
	return m.Event.Type()
}

// InterruptXHCI reports that the USB host controller has events pending.
type InterruptXHCI struct{}

// InterruptLAPICTimer reports a local APIC timer interrupt.
type InterruptLAPICTimer struct{}

// TimerTimeout is sent when a one-shot timer expires.
type TimerTimeout struct {
	Timeout uint64
	Value   int
}

// KeyPush is a decoded key press.
type KeyPush struct {
	Modifier uint8
	KeyCode  uint8
	ASCII    byte
}

// LayerOp selects what a Layer request does.
type LayerOp uint8

const (
	LayerMove LayerOp = iota
	LayerMoveRelative
	LayerDraw
)

func (op LayerOp) String() string {
	switch op {
	case LayerMove:
		return "move"
	case LayerMoveRelative:
		return "move-relative"
	case LayerDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// Layer asks the compositor task to move or redraw a layer.
type Layer struct {
	Op      LayerOp
	LayerID uint32
	X, Y    int
}

// LayerFinish acknowledges a Layer request back to its sender.
type LayerFinish struct {
	LayerID uint32
}

func (InterruptXHCI) Type() Type       { return TypeInterruptXHCI }
func (InterruptLAPICTimer) Type() Type { return TypeInterruptLAPICTimer }
func (TimerTimeout) Type() Type        { return TypeTimerTimeout }
func (KeyPush) Type() Type             { return TypeKeyPush }
func (Layer) Type() Type               { return TypeLayer }
func (LayerFinish) Type() Type         { return TypeLayerFinish }

func (InterruptXHCI) isEvent()       {}
func (InterruptLAPICTimer) isEvent() {}
func (TimerTimeout) isEvent()        {}
func (KeyPush) isEvent()             {}
func (Layer) isEvent()               {}
func (LayerFinish) isEvent()         {}
