package app

import (
	"image/color"
	"log/slog"
	"strings"

	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/kernel/cpu"

	"tinygo.org/x/tinyfont"
)

func installHaltScreen(c *cpu.Host, h hal.HAL) {
	c.SetHaltHandler(func(info cpu.HaltInfo) {
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line != "" {
				slog.Debug("halt stack", slog.String("frame", line))
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		drawHaltScreen(disp.Framebuffer(), info)
	})
}

// drawHaltScreen paints the reason and the top of the stack in white on red.
func drawHaltScreen(fb hal.Framebuffer, info cpu.HaltInfo) {
	if fb == nil {
		return
	}
	fb.ClearRGB(0x80, 0, 0)
	d := hal.NewDisplay(fb)

	lines := []string{"KERNEL HALTED", info.Reason, ""}
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	font := &tinyfont.TomThumb
	fg := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	lh := int16(font.GetYAdvance())
	y := lh
	for _, line := range lines {
		if int(y) > fb.Height() {
			break
		}
		tinyfont.WriteLine(d, font, 2, y, line, fg)
		y += lh
	}
	_ = d.Display()
}
