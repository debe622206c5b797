package layer

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Window frame geometry.
const (
	TitleBarHeight = 20
	frameWidth     = 4
)

var (
	frameColor    = color.RGBA{0xc6, 0xc6, 0xc6, 0xff}
	titleBarColor = color.RGBA{0x00, 0x00, 0x84, 0xff}
	titleColor    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ClientColor   = color.RGBA{0x00, 0x00, 0x00, 0xff}
	TextColor     = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
)

// Window is a layer with a title bar and a client area for text.
type Window struct {
	*Layer
	title string
}

// NewWindow allocates a framed w x h layer titled title.
func (m *Manager) NewWindow(w, h int, title string) *Window {
	win := &Window{Layer: m.NewLayer(w, h), title: title}
	win.drawFrame()
	return win
}

func (w *Window) Title() string { return w.title }

// ClientArea is the part of the window image below the title bar.
func (w *Window) ClientArea() image.Rectangle {
	b := w.img.Bounds()
	return image.Rect(b.Min.X+frameWidth, b.Min.Y+frameWidth+TitleBarHeight, b.Max.X-frameWidth, b.Max.Y-frameWidth)
}

func (w *Window) drawFrame() {
	b := w.img.Bounds()
	dc := gg.NewContextForRGBA(w.img)

	dc.SetColor(frameColor)
	dc.Clear()
	dc.SetRGB255(0x84, 0x84, 0x84)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(b.Dx())-1, float64(b.Dy())-1)
	dc.Stroke()

	dc.SetColor(titleBarColor)
	dc.DrawRectangle(frameWidth-1, frameWidth-1, float64(b.Dx()-2*frameWidth+2), TitleBarHeight)
	dc.Fill()
	dc.SetColor(titleColor)
	dc.DrawStringAnchored(w.title, frameWidth+4, frameWidth-1+TitleBarHeight/2, 0, 0.35)

	w.ClearClient()
}

// ClearClient paints the client area with ClientColor.
func (w *Window) ClearClient() {
	draw.Draw(w.img, w.ClientArea(), image.NewUniform(ClientColor), image.Point{}, draw.Src)
}

// LineHeight is the distance between text rows in a client area.
func LineHeight() int { return int(tinyfont.TomThumb.GetYAdvance()) }

// WriteString draws s on row row of the client area, starting at column x
// pixels, after clearing that row.
func (w *Window) WriteString(x, row int, s string, c color.RGBA) {
	ca := w.ClientArea()
	lh := LineHeight()
	top := ca.Min.Y + 2 + row*lh
	if top+lh > ca.Max.Y {
		return
	}
	line := image.Rect(ca.Min.X, top, ca.Max.X, top+lh)
	draw.Draw(w.img, line, image.NewUniform(ClientColor), image.Point{}, draw.Src)

	d := &clipDisplay{img: w.img, clip: line}
	tinyfont.WriteLine(d, &tinyfont.TomThumb, int16(ca.Min.X+2+x), int16(top+lh-1), s, c)
}

// clipDisplay is a drivers.Displayer over a layer image restricted to clip.
type clipDisplay struct {
	img  *image.RGBA
	clip image.Rectangle
}

var _ drivers.Displayer = (*clipDisplay)(nil)

func (d *clipDisplay) Size() (x, y int16) {
	b := d.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d *clipDisplay) SetPixel(x, y int16, c color.RGBA) {
	if !image.Pt(int(x), int(y)).In(d.clip) {
		return
	}
	d.img.SetRGBA(int(x), int(y), c)
}

func (d *clipDisplay) Display() error { return nil }

// Console is the client area of a window seen as a character display, with
// coordinates relative to the client origin.
type Console struct {
	w *Window
}

// Console returns the client area of w as a display.
func (w *Window) Console() *Console { return &Console{w: w} }

func (c *Console) Size() (x, y int16) {
	ca := c.w.ClientArea()
	return int16(ca.Dx()), int16(ca.Dy())
}

func (c *Console) SetPixel(x, y int16, col color.RGBA) {
	ca := c.w.ClientArea()
	p := ca.Min.Add(image.Pt(int(x), int(y)))
	if !p.In(ca) {
		return
	}
	c.w.img.SetRGBA(p.X, p.Y, col)
}

// Display is a no-op: the owning task asks the compositor to draw the layer.
func (c *Console) Display() error { return nil }

func (c *Console) FillRectangle(x, y, width, height int16, col color.RGBA) error {
	ca := c.w.ClientArea()
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).Add(ca.Min).Intersect(ca)
	if !r.Empty() {
		draw.Draw(c.w.img, r, image.NewUniform(col), image.Point{}, draw.Src)
	}
	return nil
}

func (c *Console) SetScroll(line int16) {
	_ = line
}

func (c *Console) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

// ScrollUp moves the client area up by lines pixels and clears the rows
// exposed at the bottom.
func (c *Console) ScrollUp(lines int16, bg color.RGBA) error {
	ca := c.w.ClientArea()
	n := int(lines)
	if n <= 0 {
		return nil
	}
	if n >= ca.Dy() {
		return c.FillRectangle(0, 0, int16(ca.Dx()), int16(ca.Dy()), bg)
	}
	img := c.w.img
	rowBytes := ca.Dx() * 4
	for y := ca.Min.Y; y < ca.Max.Y-n; y++ {
		dst := img.PixOffset(ca.Min.X, y)
		src := img.PixOffset(ca.Min.X, y+n)
		copy(img.Pix[dst:dst+rowBytes], img.Pix[src:src+rowBytes])
	}
	return c.FillRectangle(0, int16(ca.Dy()-n), int16(ca.Dx()), int16(n), bg)
}
