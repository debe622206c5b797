package app

import (
	"io"
	"log/slog"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"

	"github.com/hogehogei/HogepOS/kernel/layer"
)

const (
	prompt = "> "

	termFontHeight = 6
	termFontOffset = 5
)

var _ tinyterm.Displayer = (*layer.Console)(nil)

// terminal is a line editor drawn into a window through tinyterm.
type terminal struct {
	tt     *tinyterm.Terminal
	out    io.Writer
	exec   func(line string) string
	line   []byte
	lines  []string
	cursor bool
}

func newTerminal(win *layer.Window, exec func(string) string) *terminal {
	t := &terminal{
		tt:   tinyterm.NewTerminal(win.Console()),
		exec: exec,
	}
	t.out = t.tt
	t.tt.Configure(&tinyterm.Config{
		Font:              &tinyfont.TomThumb,
		FontHeight:        termFontHeight,
		FontOffset:        termFontOffset,
		UseSoftwareScroll: true,
	})
	t.write(prompt)
	return t
}

func (t *terminal) write(s string) {
	if _, err := io.WriteString(t.out, s); err != nil {
		slog.Debug("terminal write", slog.Any("err", err))
	}
}

// input handles one typed character.
func (t *terminal) input(c byte) {
	t.hideCursor()
	switch {
	case c == '\n':
		cmd := string(t.line)
		t.lines = append(t.lines, cmd)
		t.line = t.line[:0]
		t.write("\n")
		if out := t.exec(cmd); out != "" {
			t.write(out + "\n")
		}
		t.write(prompt)
	case c == '\b':
		if len(t.line) == 0 {
			return
		}
		t.line = t.line[:len(t.line)-1]
		t.write("\x1b[D \x1b[D")
	case c >= 0x20 && c < 0x7f:
		t.line = append(t.line, c)
		t.write(string(c))
	}
}

// blink toggles the cursor.
func (t *terminal) blink() {
	if t.cursor {
		t.hideCursor()
		return
	}
	t.write("_\x1b[D")
	t.cursor = true
}

func (t *terminal) hideCursor() {
	if !t.cursor {
		return
	}
	t.write(" \x1b[D")
	t.cursor = false
}

// history returns the committed lines followed by the line being edited.
func (t *terminal) history() []string {
	out := append([]string(nil), t.lines...)
	if len(t.line) > 0 {
		out = append(out, string(t.line))
	}
	return out
}
