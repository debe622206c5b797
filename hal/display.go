package hal

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
)

// FramebufferDisplay adapts an RGB565 framebuffer to drivers.Displayer so
// tinyfont and the compositor can draw on it.
type FramebufferDisplay struct {
	fb Framebuffer
}

var _ drivers.Displayer = (*FramebufferDisplay)(nil)

// NewDisplay wraps fb. A nil or non-RGB565 framebuffer draws nothing.
func NewDisplay(fb Framebuffer) *FramebufferDisplay {
	return &FramebufferDisplay{fb: fb}
}

func (d *FramebufferDisplay) usable() bool {
	return d.fb != nil && d.fb.Format() == PixelFormatRGB565 && d.fb.Buffer() != nil
}

func (d *FramebufferDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *FramebufferDisplay) SetPixel(x, y int16, c color.RGBA) {
	if !d.usable() {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	pixel := rgb565(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *FramebufferDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *FramebufferDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.usable() {
		return nil
	}
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).Intersect(d.bounds())
	if r.Empty() {
		return nil
	}

	pixel := rgb565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := r.Min.Y; py < r.Max.Y; py++ {
		row := py * stride
		for px := r.Min.X; px < r.Max.X; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// DrawRGBA converts the r portion of src into the framebuffer at the same
// coordinates. Alpha is ignored; src is expected to be fully composed.
func (d *FramebufferDisplay) DrawRGBA(src *image.RGBA, r image.Rectangle) {
	if !d.usable() {
		return
	}
	r = r.Intersect(d.bounds()).Intersect(src.Bounds())
	if r.Empty() {
		return
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := r.Min.Y; py < r.Max.Y; py++ {
		si := src.PixOffset(r.Min.X, py)
		off := py*stride + r.Min.X*2
		for px := r.Min.X; px < r.Max.X; px++ {
			pixel := rgb565(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			buf[off] = byte(pixel)
			buf[off+1] = byte(pixel >> 8)
			si += 4
			off += 2
		}
	}
}

func (d *FramebufferDisplay) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

func (d *FramebufferDisplay) bounds() image.Rectangle {
	return image.Rect(0, 0, d.fb.Width(), d.fb.Height())
}
