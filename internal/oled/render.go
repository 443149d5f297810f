// Package oled reproduces the device firmware's 128x64 drawing algorithm
// pixel for pixel, so display output can be previewed without hardware.
package oled

import "time"

// Scroll and animation cadence, matching the firmware.
const (
	LyricScrollInterval = 2 * time.Second
	LyricScrollStep     = 16
	MetaScrollInterval  = 50 * time.Millisecond
	MetaScrollGap       = 30

	NumBars  = 12
	MaxLevel = 12
)

// Renderer mirrors the device's display state machine. Its setters have
// the same surface as the serial commands; Frame renders the current state
// into a framebuffer. Scroll animation advances only through the explicit
// Tick methods, keeping every frame deterministic.
type Renderer struct {
	text       string
	textSize   int     // integer glyph scale for monospace mode
	textScale  float64 // raw font scale 1.0-3.0
	customFont bool

	mode      string // "lyrics" or "equalizer"
	playState string // "playing", "paused", "stopped"
	meta      string

	lyricScrollOffset int
	contentHeight     int

	metaWidth       int
	metaScrollX     int
	metaNeedsScroll bool

	levels [NumBars]int

	fb *Framebuffer
}

func NewRenderer() *Renderer {
	return &Renderer{
		textSize:  2,
		textScale: 2.0,
		mode:      "lyrics",
		playState: "stopped",
		fb:        NewFramebuffer(),
	}
}

// Clear wipes the lyric text and scroll position (the CLR command).
func (r *Renderer) Clear() {
	r.text = ""
	r.lyricScrollOffset = 0
	r.contentHeight = 0
}

func (r *Renderer) SetText(text string) {
	if text == r.text {
		return
	}
	r.text = text
	r.lyricScrollOffset = 0
	r.contentHeight = 0
}

// SetFontSize applies a 1.0-3.0 font scale. The two bands around 1.5 and
// 2.5 select the proportional font; everything else rounds to an integer
// monospace size.
func (r *Renderer) SetFontSize(size float64) {
	if size < 1.0 {
		size = 1.0
	}
	if size > 3.0 {
		size = 3.0
	}
	if size == r.textScale {
		return
	}
	r.textScale = size
	r.customFont = (1.4 < size && size < 1.6) || (2.4 < size && size < 2.6)
	if !r.customFont {
		r.textSize = int(size + 0.5)
	}
	r.lyricScrollOffset = 0
}

// SetMode accepts both the config values and the wire tokens.
func (r *Renderer) SetMode(mode string) {
	mapped := "lyrics"
	if mode == "equalizer" || mode == "EQ" {
		mapped = "equalizer"
	}
	if mapped == r.mode {
		return
	}
	r.mode = mapped
	r.lyricScrollOffset = 0
}

// SetState sets the play state; anything unrecognized renders as stopped.
func (r *Renderer) SetState(state string) {
	if state != "playing" && state != "paused" && state != "stopped" {
		state = "stopped"
	}
	r.playState = state
}

func (r *Renderer) SetMeta(text string) {
	if text == r.meta {
		return
	}
	r.meta = text
	r.metaWidth = len([]rune(text)) * CharWidth
	r.metaScrollX = 0
	r.metaNeedsScroll = r.metaWidth > MetaAvailW
}

func (r *Renderer) SetEqualizer(levels []int) {
	for i := 0; i < NumBars && i < len(levels); i++ {
		v := levels[i]
		if v < 0 {
			v = 0
		}
		if v > MaxLevel {
			v = MaxLevel
		}
		r.levels[i] = v
	}
}

// NeedsLyricScroll reports whether the wrapped content overflows the
// content area in lyric mode.
func (r *Renderer) NeedsLyricScroll() bool {
	return r.mode == "lyrics" && r.text != "" && r.lyricHeight() > ContentHeight
}

// TickLyricScroll advances the vertical scroll one step, wrapping back to
// the top once the final line has been shown.
func (r *Renderer) TickLyricScroll() {
	height := r.lyricHeight()
	if height <= ContentHeight {
		r.lyricScrollOffset = 0
		return
	}
	maxScroll := height - ContentHeight
	r.lyricScrollOffset += LyricScrollStep
	if r.lyricScrollOffset > maxScroll {
		r.lyricScrollOffset = 0
	}
}

// NeedsMetaScroll reports whether the status-bar text overflows its slot.
func (r *Renderer) NeedsMetaScroll() bool {
	return r.metaNeedsScroll
}

// TickMetaScroll advances the horizontal marquee one pixel.
func (r *Renderer) TickMetaScroll() {
	if !r.metaNeedsScroll {
		return
	}
	r.metaScrollX = (r.metaScrollX + 1) % (r.metaWidth + MetaScrollGap)
}

// Frame renders the current state. The returned framebuffer is reused
// across calls; copy it if it must outlive the next Frame.
func (r *Renderer) Frame() *Framebuffer {
	fb := r.fb
	fb.ResetClip()
	fb.Clear()

	// Content area, clipped so text cannot bleed into the status bar
	fb.SetClip(0, 0, Width, ContentHeight)
	if r.mode == "equalizer" {
		r.drawEqualizer(fb)
	} else if r.text != "" {
		r.drawLyrics(fb)
	}
	fb.ResetClip()

	fb.DrawHLine(0, Width-1, SeparatorY)
	r.drawStatusBar(fb)

	return fb
}

// wrapLines wraps the current text for the active font settings and
// returns the lines with their pixel height per line.
func (r *Renderer) wrapLines() ([]string, int) {
	if r.customFont {
		lineH := 14
		if 2.4 < r.textScale && r.textScale < 2.6 {
			lineH = 18
		}
		return WrapProportional(r.text, lineH), lineH
	}
	charW := CharWidth * r.textSize
	charsPerLine := Width / charW
	if charsPerLine < 1 {
		charsPerLine = 1
	}
	return WrapMonospace(r.text, charsPerLine), CharHeight * r.textSize
}

func (r *Renderer) lyricHeight() int {
	if r.text == "" {
		return 0
	}
	lines, lineH := r.wrapLines()
	return len(lines) * lineH
}

func (r *Renderer) drawLyrics(fb *Framebuffer) {
	lines, lineH := r.wrapLines()
	r.contentHeight = len(lines) * lineH

	startY := -r.lyricScrollOffset
	for i, line := range lines {
		y := startY + i*lineH
		// Only lines intersecting the visible window are drawn
		if y+lineH <= 0 || y >= ContentHeight {
			continue
		}
		if r.customFont {
			fb.drawPropText(0, y, line, lineH)
		} else {
			fb.DrawText(0, y, line, r.textSize)
		}
	}
}

func (r *Renderer) drawEqualizer(fb *Framebuffer) {
	barWidth := Width / NumBars
	maxHeight := ContentHeight - 2

	for i := 0; i < NumBars; i++ {
		barHeight := r.levels[i] * maxHeight / MaxLevel
		if barHeight == 0 {
			continue
		}
		x := i * barWidth
		y := maxHeight - barHeight
		fb.FillRect(x+1, y, barWidth-2, barHeight)
	}
}

func (r *Renderer) drawStatusBar(fb *Framebuffer) {
	switch r.playState {
	case "playing":
		fb.fillTriangleRight(IconX, StatusBarY, 8, 10)
	case "paused":
		fb.FillRect(IconX, StatusBarY, 3, 11)
		fb.FillRect(IconX+5, StatusBarY, 3, 11)
	default:
		fb.FillRect(IconX, StatusBarY, 9, 9)
	}

	if r.meta == "" {
		return
	}

	textY := StatusBarY + 2
	if !r.metaNeedsScroll {
		fb.DrawText(MetaTextX, textY, r.meta, 1)
		return
	}

	// Marquee: two copies offset by text width plus the repeat gap, clipped
	// to the status-bar slot, so the text loops seamlessly.
	total := r.metaWidth + MetaScrollGap
	fb.SetClip(MetaTextX, StatusBarY, Width, Height)
	for pass := 0; pass < 2; pass++ {
		baseX := MetaTextX - r.metaScrollX + pass*total
		if baseX+r.metaWidth < MetaTextX || baseX >= Width {
			continue
		}
		fb.DrawText(baseX, textY, r.meta, 1)
	}
	fb.ResetClip()
}
