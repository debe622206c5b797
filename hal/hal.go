package hal

import "context"

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
//
// Buffer is owned by the kernel; Present publishes it to the screen.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier for keys without a character.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Time provides the local APIC timer tick stream.
//
// Ticks arrive at the configured rate; a slow consumer loses ticks rather
// than stalling the source.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the kernel and the machine.
type HAL interface {
	Display() Display
	Input() Input
	Time() Time
}

// Kernel is the code a runner boots on the machine. It returns when the
// machine powers off.
type Kernel func(ctx context.Context, h HAL) error
