// Package keyboard decodes HID boot-protocol key reports into KeyPush
// messages for the main task.
package keyboard

import (
	"github.com/hogehogei/HogepOS/kernel/event"
)

// Modifier bits of a boot-protocol report.
const (
	LControlBitMask uint8 = 1 << iota
	LShiftBitMask
	LAltBitMask
	LGUIBitMask
	RControlBitMask
	RShiftBitMask
	RAltBitMask
	RGUIBitMask
)

var keycodeMap = [256]byte{
	0, 0, 0, 0, 'a', 'b', 'c', 'd', // 0
	'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', // 8
	'm', 'n', 'o', 'p', 'q', 'r', 's', 't', // 16
	'u', 'v', 'w', 'x', 'y', 'z', '1', '2', // 24
	'3', '4', '5', '6', '7', '8', '9', '0', // 32
	'\n', '\b', 0x08, '\t', ' ', '-', '=', '[', // 40
	']', '\\', '#', ';', '\'', '`', ',', '.', // 48
	'/', 0, 0, 0, 0, 0, 0, 0, // 56
	0, 0, 0, 0, 0, 0, 0, 0, // 64
	0, 0, 0, 0, 0, 0, 0, 0, // 72
	0, 0, 0, 0, '/', '*', '-', '+', // 80
	'\n', '1', '2', '3', '4', '5', '6', '7', // 88
	'8', '9', '0', '.', '\\', 0, 0, '=', // 96
}

var keycodeMapShifted = [256]byte{
	0, 0, 0, 0, 'A', 'B', 'C', 'D', // 0
	'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', // 8
	'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', // 16
	'U', 'V', 'W', 'X', 'Y', 'Z', '!', '@', // 24
	'#', '$', '%', '^', '&', '*', '(', ')', // 32
	'\n', '\b', 0x08, '\t', ' ', '_', '+', '{', // 40
	'}', '|', '~', ':', '"', '~', '<', '>', // 48
	'?', 0, 0, 0, 0, 0, 0, 0, // 56
	0, 0, 0, 0, 0, 0, 0, 0, // 64
	0, 0, 0, 0, 0, 0, 0, 0, // 72
	0, 0, 0, 0, '/', '*', '-', '+', // 80
	'\n', '1', '2', '3', '4', '5', '6', '7', // 88
	'8', '9', '0', '.', '\\', 0, 0, '=', // 96
}

// Key is one key of a boot-protocol report.
type Key struct {
	Modifier uint8
	KeyCode  uint8
}

// IsPressedShift reports whether either shift key is held.
func (k Key) IsPressedShift() bool {
	return k.Modifier&(LShiftBitMask|RShiftBitMask) != 0
}

// ASCII returns the character for the key, or 0 if it has none.
func (k Key) ASCII() byte {
	if k.IsPressedShift() {
		return keycodeMapShifted[k.KeyCode]
	}
	return keycodeMap[k.KeyCode]
}

// Message wraps the key as a KeyPush sent by src.
func (k Key) Message(src uint64) event.Message {
	return event.Message{
		Src:   src,
		Event: event.KeyPush{Modifier: k.Modifier, KeyCode: k.KeyCode, ASCII: k.ASCII()},
	}
}

// FromASCII finds the key that produces c, preferring the unshifted map.
func FromASCII(c byte) (Key, bool) {
	if c == 0 {
		return Key{}, false
	}
	for code, v := range keycodeMap {
		if v == c {
			return Key{KeyCode: uint8(code)}, true
		}
	}
	for code, v := range keycodeMapShifted {
		if v == c {
			return Key{Modifier: LShiftBitMask, KeyCode: uint8(code)}, true
		}
	}
	return Key{}, false
}
