package hal

import (
	"context"
	"log/slog"

	"github.com/mattn/go-tty"
)

// readTTY feeds keys typed on the controlling terminal into kbd. A missing
// terminal is not an error: the machine simply has no keyboard.
func readTTY(ctx context.Context, kbd *hostKeyboard) error {
	t, err := tty.Open()
	if err != nil {
		slog.Warn("no terminal keyboard", slog.Any("error", err))
		return nil
	}
	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer func() {
		if stop() {
			t.Close()
		}
	}()

	for {
		r, err := t.ReadRune()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		kbd.push(ttyKeyEvent(r))
	}
}

func ttyKeyEvent(r rune) KeyEvent {
	switch r {
	case '\r', '\n':
		return KeyEvent{Code: KeyEnter, Press: true, Rune: '\n'}
	case 0x7f, '\b':
		return KeyEvent{Code: KeyBackspace, Press: true, Rune: '\b'}
	case '\t':
		return KeyEvent{Code: KeyTab, Press: true, Rune: '\t'}
	case 0x1b:
		return KeyEvent{Code: KeyEscape, Press: true}
	}
	return KeyEvent{Press: true, Rune: r}
}
