package hal

// Config sizes the host machine.
type Config struct {
	Width   int
	Height  int
	TimerHz int
}

const (
	defaultWidth   = 640
	defaultHeight  = 400
	defaultTimerHz = 100
)

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.TimerHz <= 0 {
		c.TimerHz = defaultTimerHz
	}
	return c
}

type hostHAL struct {
	fb  *hostFramebuffer
	kbd *hostKeyboard
	t   *hostTime
}

// New returns a host HAL implementation. Its tick source is idle until a
// runner starts it.
func New(cfg Config) HAL {
	return newHost(cfg)
}

func newHost(cfg Config) *hostHAL {
	cfg = cfg.withDefaults()
	return &hostHAL{
		fb:  newHostFramebuffer(cfg.Width, cfg.Height),
		kbd: newHostKeyboard(),
		t:   newHostTime(cfg.TimerHz),
	}
}

func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }
