// Package engine translates playback positions into display intent: which
// lyric line to show, when to fall back to the equalizer during silent
// stretches, and what band levels to animate while doing so.
package engine

import (
	"math"

	"github.com/KayLAN-Smith/lyric-display-esp32/internal/lyrics"
	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
)

const (
	// ModeLyrics and ModeEqualizer are the two configured display modes.
	ModeLyrics    = "lyrics"
	ModeEqualizer = "equalizer"

	// GapThresholdMs is the minimum silent stretch between lyric lines
	// before the display auto-switches to the equalizer. Shorter gaps keep
	// showing lyrics to avoid mode flapping between adjacent lines.
	GapThresholdMs = 300

	// NumBands matches the device's equalizer band count.
	NumBands = 12

	maxLevel = 12
)

// Sink receives display commands. Both the serial link adapter and the
// local OLED preview implement it; the engine drives every sink in the
// same order for every command, so they stay in lockstep.
type Sink interface {
	Clear()
	SetText(text string)
	SetFontSize(size float64)
	SetMode(mode string)
	SetState(state string)
	SetMeta(text string)
	SetEqualizer(levels []int)
}

// LevelSource supplies real spectrum levels for a playback position, or
// nil when analysis data is unavailable.
type LevelSource interface {
	Levels(positionMs int) []int
}

// Engine owns the lyric timeline for the loaded track and decides what
// the display should show. All methods must be called from a single
// goroutine; the app loop is that goroutine.
type Engine struct {
	sinks    []Sink
	spectrum LevelSource
	log      *logger.Logger

	lines        []lyrics.Line
	trackOffset  int
	globalOffset int
	mode         string
	lastIdx      int
	inGap        bool
	playing      bool
	volume       float64
}

// New builds an engine in lyrics mode with no track loaded. The spectrum
// source may be nil; the sine fallback then covers all equalizer ticks.
func New(spectrum LevelSource, sinks ...Sink) *Engine {
	return &Engine{
		sinks:    sinks,
		spectrum: spectrum,
		log:      logger.GetLogger(),
		mode:     ModeLyrics,
		lastIdx:  -1,
		volume:   1.0,
	}
}

// LoadLines replaces the lyric timeline, resetting the resolution cache
// and the gap flag so the next position tick starts fresh.
func (e *Engine) LoadLines(lines []lyrics.Line) {
	e.lines = lines
	e.lastIdx = -1
	e.inGap = false
	e.log.Debugf("Engine loaded %d lyric lines", len(lines))
}

// TotalOffset is the effective correction applied to every lookup.
func (e *Engine) TotalOffset() int {
	return e.trackOffset + e.globalOffset
}

// SetTrackOffset replaces the per-track offset and forces a re-send on
// the next position tick.
func (e *Engine) SetTrackOffset(ms int) {
	e.trackOffset = ms
	e.lastIdx = -1
}

// SetGlobalOffset replaces the session-wide offset and forces a re-send.
func (e *Engine) SetGlobalOffset(ms int) {
	e.globalOffset = ms
	e.lastIdx = -1
}

// AdjustTrackOffset nudges the per-track offset by delta milliseconds,
// returning the new value. The hotkey handlers call this live.
func (e *Engine) AdjustTrackOffset(delta int) int {
	e.trackOffset += delta
	e.lastIdx = -1
	return e.trackOffset
}

// TrackOffset returns the current per-track offset.
func (e *Engine) TrackOffset() int {
	return e.trackOffset
}

// SetVolume records the playback volume used by the equalizer animation.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
}

// SetConfiguredMode switches between the user-selected lyrics and
// equalizer modes and pushes the change to every sink. Unknown values
// fall back to lyrics.
func (e *Engine) SetConfiguredMode(mode string) {
	if mode != ModeEqualizer {
		mode = ModeLyrics
	}
	e.mode = mode
	e.inGap = false
	e.lastIdx = -1
	for _, s := range e.sinks {
		s.SetMode(mode)
	}
}

// SetPlayState forwards the play state to the sinks and gates the
// equalizer tick on it.
func (e *Engine) SetPlayState(state string) {
	e.playing = state == "playing"
	for _, s := range e.sinks {
		s.SetState(state)
	}
}

// SetMeta forwards track metadata to the sinks.
func (e *Engine) SetMeta(text string) {
	for _, s := range e.sinks {
		s.SetMeta(text)
	}
}

// SetFontSize forwards the font scale to the sinks.
func (e *Engine) SetFontSize(size float64) {
	for _, s := range e.sinks {
		s.SetFontSize(size)
	}
}

// InGap reports whether the engine has auto-switched to the equalizer
// during a lyric gap.
func (e *Engine) InGap() bool {
	return e.inGap
}

// OnPosition resolves the lyric line for the given playback position and
// pushes any resulting display changes. Text commands go out only when
// the resolved index changes, and are suppressed entirely while the gap
// equalizer is showing.
func (e *Engine) OnPosition(positionMs int) {
	if len(e.lines) == 0 {
		return
	}

	offset := e.TotalOffset()
	idx, text := lyrics.LineAt(e.lines, positionMs, offset)

	if e.mode == ModeLyrics {
		if text == "" && !e.inGap {
			gap := lyrics.GapUntilNext(e.lines, positionMs, offset)
			if gap < 0 || gap > GapThresholdMs {
				e.inGap = true
				for _, s := range e.sinks {
					s.SetMode(ModeEqualizer)
				}
			}
		} else if text != "" && e.inGap {
			e.inGap = false
			for _, s := range e.sinks {
				s.SetMode(ModeLyrics)
			}
		}
	}

	if idx == e.lastIdx {
		return
	}
	e.lastIdx = idx
	if e.inGap {
		return
	}
	for _, s := range e.sinks {
		if text != "" {
			s.SetText(text)
		} else {
			s.Clear()
		}
	}
}

// TickEqualizer pushes one frame of band levels. It is a no-op unless
// the equalizer is actually showing (configured mode or gap flag) and
// playback is running. Real spectrum levels are preferred; without them
// a deterministic two-sine animation keeps the bars moving.
func (e *Engine) TickEqualizer(positionMs int) {
	if e.mode != ModeEqualizer && !e.inGap {
		return
	}
	if !e.playing {
		return
	}

	var levels []int
	if e.volume <= 0.01 {
		levels = make([]int, NumBands)
	} else {
		if e.spectrum != nil {
			levels = e.spectrum.Levels(positionMs)
		}
		if levels == nil {
			levels = syntheticLevels(positionMs, e.volume)
		}
	}

	for _, s := range e.sinks {
		s.SetEqualizer(levels)
	}
}

// syntheticLevels animates the bars from two interfering sine waves per
// band, scaled by volume, so the display keeps moving when no decoded
// audio is available.
func syntheticLevels(positionMs int, volume float64) []int {
	t := float64(positionMs) / 1000.0
	base := 0.2 + volume*0.8
	levels := make([]int, NumBands)
	for i := range levels {
		wave := math.Sin(t*2.5 + float64(i)*0.7)
		wobble := math.Sin(t*0.7 + float64(i)*1.3)
		value := (wave+1.0)*0.5 + (wobble+1.0)*0.2
		level := int(value * maxLevel * base)
		if level < 0 {
			level = 0
		}
		if level > maxLevel {
			level = maxLevel
		}
		levels[i] = level
	}
	return levels
}
