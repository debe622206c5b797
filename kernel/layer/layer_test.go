package layer

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/kernel/event"
)

type testFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newTestFB(w, h int) *testFB {
	return &testFB{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *testFB) Width() int              { return f.w }
func (f *testFB) Height() int             { return f.h }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return f.w * 2 }
func (f *testFB) Buffer() []byte          { return f.buf }
func (f *testFB) ClearRGB(r, g, b uint8)  {}
func (f *testFB) Present() error          { f.presents++; return nil }

func (f *testFB) at(x, y int) uint16 {
	off := y*f.w*2 + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

var (
	black = color.RGBA{A: 0xff}
	red   = color.RGBA{R: 0xff, A: 0xff}
)

const red565 = 0xF800

func fill(l *Layer, c color.RGBA) {
	b := l.Image().Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			l.Image().SetRGBA(x, y, c)
		}
	}
}

func TestLayerLookup(t *testing.T) {
	m := NewManager(newTestFB(16, 16), black)
	a, b := m.NewLayer(2, 2), m.NewLayer(2, 2)
	if a.ID() != 1 || b.ID() != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", a.ID(), b.ID())
	}
	if got, err := m.Layer(2); err != nil || got != b {
		t.Fatalf("Layer(2) = %v, %v", got, err)
	}
	if _, err := m.Layer(3); !errors.Is(err, ErrNoSuchLayer) {
		t.Fatalf("Layer(3) error = %v, want %v", err, ErrNoSuchLayer)
	}
	if _, err := m.Layer(0); !errors.Is(err, ErrNoSuchLayer) {
		t.Fatalf("Layer(0) error = %v, want %v", err, ErrNoSuchLayer)
	}
}

func TestMoveAndDraw(t *testing.T) {
	fb := newTestFB(16, 16)
	m := NewManager(fb, black)
	l := m.NewLayer(4, 4)
	fill(l, red)

	if err := m.Move(l.ID(), 2, 2); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if fb.at(3, 3) != red565 || fb.at(1, 1) != 0 {
		t.Fatalf("after Move(2,2): (3,3)=%#04x (1,1)=%#04x", fb.at(3, 3), fb.at(1, 1))
	}

	if err := m.MoveRelative(l.ID(), 8, 0); err != nil {
		t.Fatalf("MoveRelative() error = %v", err)
	}
	if got := l.Position(); got != image.Pt(10, 2) {
		t.Fatalf("Position() = %v, want (10,2)", got)
	}
	if fb.at(3, 3) != 0 || fb.at(11, 3) != red565 {
		t.Fatalf("old area not cleared or new area not drawn: (3,3)=%#04x (11,3)=%#04x", fb.at(3, 3), fb.at(11, 3))
	}
}

func TestDrawSkipsUnchangedLayer(t *testing.T) {
	fb := newTestFB(8, 8)
	m := NewManager(fb, black)
	l := m.NewLayer(2, 2)
	fill(l, red)

	if err := m.Draw(l.ID()); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	presents := fb.presents
	if err := m.Draw(l.ID()); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if m.Skipped() != 1 || fb.presents != presents {
		t.Fatalf("Skipped() = %d, presents %d -> %d; want one skip and no present", m.Skipped(), presents, fb.presents)
	}

	l.Image().SetRGBA(0, 0, black)
	if err := m.Draw(l.ID()); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if m.Skipped() != 1 || fb.at(0, 0) != 0 || fb.at(1, 1) != red565 {
		t.Fatalf("changed layer not redrawn: skipped=%d (0,0)=%#04x", m.Skipped(), fb.at(0, 0))
	}
}

func TestUpperLayerWins(t *testing.T) {
	fb := newTestFB(8, 8)
	m := NewManager(fb, black)
	lower, upper := m.NewLayer(4, 4), m.NewLayer(2, 2)
	fill(lower, red)
	fill(upper, color.RGBA{B: 0xff, A: 0xff})

	m.DrawAll()
	if fb.at(0, 0) != 0x001F || fb.at(3, 3) != red565 {
		t.Fatalf("(0,0)=%#04x (3,3)=%#04x, want upper blue over lower red", fb.at(0, 0), fb.at(3, 3))
	}
}

func TestApply(t *testing.T) {
	m := NewManager(newTestFB(8, 8), black)
	l := m.NewLayer(2, 2)

	if err := m.Apply(event.Layer{Op: event.LayerMove, LayerID: l.ID(), X: 3, Y: 4}); err != nil {
		t.Fatalf("Apply(move) error = %v", err)
	}
	if err := m.Apply(event.Layer{Op: event.LayerMoveRelative, LayerID: l.ID(), X: -1, Y: 1}); err != nil {
		t.Fatalf("Apply(move relative) error = %v", err)
	}
	if got := l.Position(); got != image.Pt(2, 5) {
		t.Fatalf("Position() = %v, want (2,5)", got)
	}
	if err := m.Apply(event.Layer{Op: event.LayerDraw, LayerID: 9}); !errors.Is(err, ErrNoSuchLayer) {
		t.Fatalf("Apply(draw 9) error = %v, want %v", err, ErrNoSuchLayer)
	}
}

func TestWindowText(t *testing.T) {
	m := NewManager(newTestFB(64, 64), black)
	w := m.NewWindow(60, 40, "term")

	if got := w.Image().RGBAAt(frameWidth+1, frameWidth+1); got != titleBarColor {
		t.Fatalf("title bar pixel = %v, want %v", got, titleBarColor)
	}
	ca := w.ClientArea()
	if got := w.Image().RGBAAt(ca.Min.X, ca.Max.Y-1); got != ClientColor {
		t.Fatalf("client pixel = %v, want %v", got, ClientColor)
	}

	w.WriteString(0, 0, "HI", TextColor)
	lit := 0
	for y := ca.Min.Y; y < ca.Min.Y+2+LineHeight(); y++ {
		for x := ca.Min.X; x < ca.Max.X; x++ {
			if w.Image().RGBAAt(x, y) == TextColor {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("WriteString() drew nothing")
	}
}

func TestSavePNG(t *testing.T) {
	m := NewManager(newTestFB(4, 4), black)
	path := filepath.Join(t.TempDir(), "screen.png")
	if err := m.SavePNG(path); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
}

func TestConsoleScrollUp(t *testing.T) {
	m := NewManager(newTestFB(64, 64), black)
	w := m.NewWindow(40, 40, "con")
	con := w.Console()
	ca := w.ClientArea()

	if x, y := con.Size(); int(x) != ca.Dx() || int(y) != ca.Dy() {
		t.Fatalf("Size() = %d,%d, want %d,%d", x, y, ca.Dx(), ca.Dy())
	}
	con.SetPixel(1, 5, red)
	if got := w.Image().RGBAAt(ca.Min.X+1, ca.Min.Y+5); got != red {
		t.Fatalf("SetPixel() landed at %v, want red", got)
	}

	if err := con.ScrollUp(3, ClientColor); err != nil {
		t.Fatalf("ScrollUp() error = %v", err)
	}
	if got := w.Image().RGBAAt(ca.Min.X+1, ca.Min.Y+2); got != red {
		t.Fatalf("after ScrollUp(3) pixel = %v, want red at row 2", got)
	}
	if got := w.Image().RGBAAt(ca.Min.X+1, ca.Min.Y+5); got != ClientColor {
		t.Fatalf("old pixel position = %v, want cleared", got)
	}

	// Fills never leave the client area.
	if err := con.FillRectangle(-10, -10, 100, 100, red); err != nil {
		t.Fatalf("FillRectangle() error = %v", err)
	}
	if got := w.Image().RGBAAt(frameWidth+1, frameWidth+1); got != titleBarColor {
		t.Fatalf("title bar overwritten: %v", got)
	}
}
