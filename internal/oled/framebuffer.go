package oled

import "strings"

// Display geometry, matching the device firmware.
const (
	Width  = 128
	Height = 64

	ContentHeight = 48 // lyrics or equalizer bars live in y 0..47
	SeparatorY    = 49
	StatusBarY    = 52
	IconX         = 2
	MetaTextX     = 16
	MetaAvailW    = Width - MetaTextX

	CharWidth  = 6 // 5x7 glyph in a 6x8 cell at text size 1
	CharHeight = 8
)

// Framebuffer is a 1-bit 128x64 pixel grid with an optional clip rectangle.
type Framebuffer struct {
	pix [Height][Width]bool

	clipX0, clipY0 int
	clipX1, clipY1 int // exclusive
}

func NewFramebuffer() *Framebuffer {
	fb := &Framebuffer{}
	fb.ResetClip()
	return fb
}

func (fb *Framebuffer) Clear() {
	fb.pix = [Height][Width]bool{}
}

// SetClip restricts subsequent drawing to [x0,x1) x [y0,y1).
func (fb *Framebuffer) SetClip(x0, y0, x1, y1 int) {
	fb.clipX0, fb.clipY0 = x0, y0
	fb.clipX1, fb.clipY1 = x1, y1
}

func (fb *Framebuffer) ResetClip() {
	fb.SetClip(0, 0, Width, Height)
}

func (fb *Framebuffer) Set(x, y int) {
	if x < fb.clipX0 || x >= fb.clipX1 || y < fb.clipY0 || y >= fb.clipY1 {
		return
	}
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	fb.pix[y][x] = true
}

func (fb *Framebuffer) Get(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return fb.pix[y][x]
}

func (fb *Framebuffer) DrawHLine(x0, x1, y int) {
	for x := x0; x <= x1; x++ {
		fb.Set(x, y)
	}
}

func (fb *Framebuffer) FillRect(x, y, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			fb.Set(x+dx, y+dy)
		}
	}
}

// fillTriangleRight draws a filled right-pointing triangle with its
// vertical edge at x spanning h rows, extending w columns to the apex.
func (fb *Framebuffer) fillTriangleRight(x, y, w, h int) {
	for col := 0; col <= w; col++ {
		inset := col * h / (2 * w)
		for dy := inset; dy <= h-inset; dy++ {
			fb.Set(x+col, y+dy)
		}
	}
}

// DrawGlyph renders one character at integer scale with its cell's top-left
// corner at (x, y).
func (fb *Framebuffer) DrawGlyph(x, y int, ch rune, scale int) {
	glyph := glyphFor(ch)
	for col := 0; col < 5; col++ {
		bits := glyph[col]
		for row := 0; row < 7; row++ {
			if bits&(1<<row) == 0 {
				continue
			}
			fb.FillRect(x+col*scale, y+row*scale, scale, scale)
		}
	}
}

// DrawText renders text in the monospace cell grid starting at (x, y).
func (fb *Framebuffer) DrawText(x, y int, text string, scale int) {
	for _, ch := range text {
		fb.DrawGlyph(x, y, ch, scale)
		x += CharWidth * scale
	}
}

// drawPropText renders text with proportional advances for a line of height
// lineH. Glyphs come from the bitmap font at 2x scale; only the advances
// differ from the monospace path.
func (fb *Framebuffer) drawPropText(x, y int, text string, lineH int) {
	for _, ch := range text {
		fb.DrawGlyph(x, y+(lineH-14)/2, ch, 2)
		x += propAdvance(ch, lineH)
	}
}

// String renders the framebuffer as terminal text, two pixel rows per text
// row using half-block runes. Used by the CLI preview.
func (fb *Framebuffer) String() string {
	var b strings.Builder
	for y := 0; y < Height; y += 2 {
		for x := 0; x < Width; x++ {
			top, bottom := fb.pix[y][x], fb.pix[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
