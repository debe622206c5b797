//go:build cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *hostKeyboard) push(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

// poll runs on the ebiten update goroutine once per frame.
func (k *hostKeyboard) poll() {
	for _, r := range ebiten.AppendInputChars(nil) {
		k.push(KeyEvent{Press: true, Rune: r})
	}

	// Keys without a character still map to ASCII control codes.
	special := []struct {
		key  ebiten.Key
		code KeyCode
		r    rune
	}{
		{ebiten.KeyEnter, KeyEnter, '\n'},
		{ebiten.KeyBackspace, KeyBackspace, '\b'},
		{ebiten.KeyTab, KeyTab, '\t'},
		{ebiten.KeyEscape, KeyEscape, 0},
	}
	for _, s := range special {
		if inpututil.IsKeyJustPressed(s.key) {
			k.push(KeyEvent{Code: s.code, Press: true, Rune: s.r})
		}
	}
}
