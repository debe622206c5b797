// Package layer composes task windows onto the framebuffer. The manager is
// owned by the main task; other tasks draw into their own layer image and ask
// the main task to put it on screen.
package layer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/fogleman/gg"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/internal/logging"
	"github.com/hogehogei/HogepOS/kernel/event"
)

// ErrNoSuchLayer is returned for an id no layer was allocated with.
var ErrNoSuchLayer = errors.New("no such layer")

// Layer is one rectangle of pixels at a screen position.
type Layer struct {
	id  uint32
	pos image.Point
	img *image.RGBA

	drawn   bool
	sum     uint64
	drawnAt image.Point
}

func (l *Layer) ID() uint32              { return l.id }
func (l *Layer) Image() *image.RGBA      { return l.img }
func (l *Layer) Position() image.Point   { return l.pos }
func (l *Layer) Bounds() image.Rectangle { return l.img.Bounds().Add(l.pos) }

// Manager stacks layers bottom to top and keeps the composed screen.
type Manager struct {
	screen *image.RGBA
	bg     *image.Uniform
	out    *hal.FramebufferDisplay

	layers []*Layer
	stack  []*Layer

	skipped uint64
}

// NewManager composes onto fb over a solid background.
func NewManager(fb hal.Framebuffer, bg color.RGBA) *Manager {
	m := &Manager{
		screen: image.NewRGBA(image.Rect(0, 0, fb.Width(), fb.Height())),
		bg:     image.NewUniform(bg),
		out:    hal.NewDisplay(fb),
	}
	draw.Draw(m.screen, m.screen.Bounds(), m.bg, image.Point{}, draw.Src)
	return m
}

// NewLayer allocates a w x h layer at the origin, on top of the stack. It
// is not on screen until it is drawn.
func (m *Manager) NewLayer(w, h int) *Layer {
	l := &Layer{
		id:  uint32(len(m.layers) + 1),
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	m.layers = append(m.layers, l)
	m.stack = append(m.stack, l)
	return l
}

// Layer returns the layer with the given id.
func (m *Manager) Layer(id uint32) (*Layer, error) {
	if id == 0 || int(id) > len(m.layers) {
		return nil, fmt.Errorf("layer %d: %w", id, ErrNoSuchLayer)
	}
	return m.layers[id-1], nil
}

// Move places the layer at (x, y) and redraws both the old and new area.
func (m *Manager) Move(id uint32, x, y int) error {
	l, err := m.Layer(id)
	if err != nil {
		return err
	}
	old := l.Bounds()
	l.pos = image.Pt(x, y)
	m.redraw(old.Union(l.Bounds()))
	l.markDrawn()
	return nil
}

// MoveRelative shifts the layer by (dx, dy).
func (m *Manager) MoveRelative(id uint32, dx, dy int) error {
	l, err := m.Layer(id)
	if err != nil {
		return err
	}
	return m.Move(id, l.pos.X+dx, l.pos.Y+dy)
}

// Draw puts the current contents of the layer on screen. A layer whose pixels
// and position are unchanged since its last draw is skipped.
func (m *Manager) Draw(id uint32) error {
	l, err := m.Layer(id)
	if err != nil {
		return err
	}
	if l.drawn && l.drawnAt == l.pos && l.sum == xxhash.Sum64(l.img.Pix) {
		m.skipped++
		logging.VDebug("layer", "draw skipped", slog.Uint64("layer", uint64(id)))
		return nil
	}
	m.redraw(l.Bounds())
	l.markDrawn()
	return nil
}

// DrawAll recomposes the whole screen.
func (m *Manager) DrawAll() {
	m.redraw(m.screen.Bounds())
	for _, l := range m.stack {
		l.markDrawn()
	}
}

// Apply performs a layer request from a task.
func (m *Manager) Apply(req event.Layer) error {
	switch req.Op {
	case event.LayerMove:
		return m.Move(req.LayerID, req.X, req.Y)
	case event.LayerMoveRelative:
		return m.MoveRelative(req.LayerID, req.X, req.Y)
	case event.LayerDraw:
		return m.Draw(req.LayerID)
	}
	return fmt.Errorf("layer %d: unknown operation %v", req.LayerID, req.Op)
}

// Skipped returns the number of draws elided because nothing changed.
func (m *Manager) Skipped() uint64 { return m.skipped }

// Screen returns the composed frame. It is only valid in the owning task.
func (m *Manager) Screen() *image.RGBA { return m.screen }

// SavePNG writes the composed frame to path.
func (m *Manager) SavePNG(path string) error {
	return gg.SavePNG(path, m.screen)
}

func (m *Manager) redraw(r image.Rectangle) {
	r = r.Intersect(m.screen.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(m.screen, r, m.bg, image.Point{}, draw.Src)
	for _, l := range m.stack {
		lr := r.Intersect(l.Bounds())
		if lr.Empty() {
			continue
		}
		draw.Draw(m.screen, lr, l.img, lr.Min.Sub(l.pos), draw.Over)
	}
	m.out.DrawRGBA(m.screen, r)
	if err := m.out.Display(); err != nil {
		slog.Warn("present failed", slog.Any("error", err))
	}
}

func (l *Layer) markDrawn() {
	l.drawn = true
	l.drawnAt = l.pos
	l.sum = xxhash.Sum64(l.img.Pix)
}
