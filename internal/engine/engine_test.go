package engine

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/KayLAN-Smith/lyric-display-esp32/internal/lyrics"
)

type recordSink struct {
	calls  []string
	levels [][]int
}

func (s *recordSink) Clear()                 { s.calls = append(s.calls, "CLR") }
func (s *recordSink) SetText(text string)    { s.calls = append(s.calls, "TXT|"+text) }
func (s *recordSink) SetFontSize(f float64)  { s.calls = append(s.calls, fmt.Sprintf("FONT|%.1f", f)) }
func (s *recordSink) SetMode(mode string)    { s.calls = append(s.calls, "MODE|"+mode) }
func (s *recordSink) SetState(state string)  { s.calls = append(s.calls, "STA|"+state) }
func (s *recordSink) SetMeta(text string)    { s.calls = append(s.calls, "META|"+text) }
func (s *recordSink) SetEqualizer(lv []int) {
	cp := make([]int, len(lv))
	copy(cp, lv)
	s.levels = append(s.levels, cp)
	s.calls = append(s.calls, "EQ")
}

type fixedLevels struct {
	out []int
}

func (f *fixedLevels) Levels(positionMs int) []int { return f.out }

func testLines(t *testing.T) []lyrics.Line {
	t.Helper()
	return []lyrics.Line{
		{Index: 1, StartMs: 0, EndMs: 1000, Text: "first line"},
		{Index: 2, StartMs: 1400, EndMs: 2000, Text: "second line"},
	}
}

func newTestEngine(t *testing.T, src LevelSource) (*Engine, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	e := New(src, sink)
	e.LoadLines(testLines(t))
	return e, sink
}

func TestSendsOnlyOnIndexChange(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	e.OnPosition(0)
	e.OnPosition(100)
	e.OnPosition(500)

	want := []string{"TXT|first line"}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}

	e.OnPosition(1500)
	want = append(want, "TXT|second line")
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("After line change, calls = %v, want %v", sink.calls, want)
	}
}

func TestGapHysteresis(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	e.OnPosition(500)
	// Line "first" ends at 1000; the 400 ms gap exceeds the threshold, so
	// the display flips to the equalizer and the clear is suppressed.
	e.OnPosition(1000)
	if !e.InGap() {
		t.Fatal("Expected gap flag after entering a 400 ms gap")
	}

	// Still in the gap one tick before the next line: no second switch.
	e.OnPosition(1399)

	// Next line starts: back to lyrics, then the new text.
	e.OnPosition(1400)
	if e.InGap() {
		t.Fatal("Gap flag should clear once a line resolves")
	}

	want := []string{
		"TXT|first line",
		"MODE|equalizer",
		"MODE|lyrics",
		"TXT|second line",
	}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}
}

func TestShortGapStaysInLyrics(t *testing.T) {
	sink := &recordSink{}
	e := New(nil, sink)
	e.LoadLines([]lyrics.Line{
		{Index: 1, StartMs: 0, EndMs: 1000, Text: "a"},
		{Index: 2, StartMs: 1200, EndMs: 2000, Text: "b"},
	})

	e.OnPosition(500)
	e.OnPosition(1050) // 150 ms until the next line: below the threshold
	if e.InGap() {
		t.Error("Sub-threshold gap must not switch modes")
	}

	want := []string{"TXT|a", "CLR", "TXT|b"}
	e.OnPosition(1300)
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}
}

func TestTailEntersGap(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	e.OnPosition(1500)
	e.OnPosition(3000) // past the last line: gap with no next line
	if !e.InGap() {
		t.Error("Position past the last line should raise the gap flag")
	}
	want := []string{"TXT|second line", "MODE|equalizer"}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}
}

func TestEqualizerModeSkipsAutoSwitch(t *testing.T) {
	e, sink := newTestEngine(t, nil)
	e.SetConfiguredMode(ModeEqualizer)
	sink.calls = nil

	e.OnPosition(1000)
	if e.InGap() {
		t.Error("Configured equalizer mode must not use the gap flag")
	}
}

func TestOffsetShiftsLookup(t *testing.T) {
	e, sink := newTestEngine(t, nil)
	e.SetGlobalOffset(1000)

	// position 500 + offset 1000 = 1500 lands in the second line
	e.OnPosition(500)
	want := []string{"TXT|second line"}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}
}

func TestOffsetAdjustForcesResend(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	e.OnPosition(500)
	e.OnPosition(600)
	if got := len(sink.calls); got != 1 {
		t.Fatalf("Expected a single send before the adjustment, got %v", sink.calls)
	}

	if got := e.AdjustTrackOffset(50); got != 50 {
		t.Fatalf("AdjustTrackOffset = %d, want 50", got)
	}
	e.OnPosition(700)

	want := []string{"TXT|first line", "TXT|first line"}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Adjusting the offset must force a re-send: %v", sink.calls)
	}
}

func TestEqualizerTickGating(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	// Lyrics mode, no gap: nothing.
	e.SetPlayState("playing")
	sink.calls = nil
	e.TickEqualizer(0)
	if len(sink.levels) != 0 {
		t.Error("Tick must be silent in lyrics mode outside a gap")
	}

	// Equalizer mode but paused: nothing.
	e.SetConfiguredMode(ModeEqualizer)
	e.SetPlayState("paused")
	e.TickEqualizer(0)
	if len(sink.levels) != 0 {
		t.Error("Tick must be silent while paused")
	}

	e.SetPlayState("playing")
	e.TickEqualizer(0)
	if len(sink.levels) != 1 {
		t.Fatalf("Expected one level frame, got %d", len(sink.levels))
	}
	if len(sink.levels[0]) != NumBands {
		t.Errorf("Frame has %d bands, want %d", len(sink.levels[0]), NumBands)
	}
}

func TestEqualizerZeroVolume(t *testing.T) {
	e, sink := newTestEngine(t, &fixedLevels{out: []int{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}})
	e.SetConfiguredMode(ModeEqualizer)
	e.SetPlayState("playing")
	e.SetVolume(0)

	e.TickEqualizer(1000)
	want := make([]int, NumBands)
	if !reflect.DeepEqual(sink.levels[0], want) {
		t.Errorf("Muted tick = %v, want all zeros", sink.levels[0])
	}
}

func TestEqualizerPrefersRealLevels(t *testing.T) {
	real := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	e, sink := newTestEngine(t, &fixedLevels{out: real})
	e.SetConfiguredMode(ModeEqualizer)
	e.SetPlayState("playing")

	e.TickEqualizer(1000)
	if !reflect.DeepEqual(sink.levels[0], real) {
		t.Errorf("Tick = %v, want analyzer output %v", sink.levels[0], real)
	}
}

func TestSyntheticFallback(t *testing.T) {
	e, sink := newTestEngine(t, nil)
	e.SetConfiguredMode(ModeEqualizer)
	e.SetPlayState("playing")
	e.SetVolume(1.0)

	e.TickEqualizer(0)
	e.TickEqualizer(0)
	if !reflect.DeepEqual(sink.levels[0], sink.levels[1]) {
		t.Error("Fallback animation must be deterministic for a position")
	}

	// t=0, i=0: both sines are zero, so value = 0.5 + 0.2 = 0.7 and the
	// band level is int(0.7 * 12) = 8 at full volume.
	if sink.levels[0][0] != 8 {
		t.Errorf("Band 0 at t=0 = %d, want 8", sink.levels[0][0])
	}

	// t=1, i=0: the raw value exceeds 1.0 and must clamp at 12.
	e.TickEqualizer(1000)
	if sink.levels[2][0] != 12 {
		t.Errorf("Band 0 at t=1 = %d, want clamp at 12", sink.levels[2][0])
	}

	for _, frame := range sink.levels {
		for i, lv := range frame {
			if lv < 0 || lv > 12 {
				t.Fatalf("Band %d level %d out of range", i, lv)
			}
		}
	}
}

func TestStateAndMetaFanOut(t *testing.T) {
	e, sink := newTestEngine(t, nil)

	e.SetPlayState("playing")
	e.SetMeta("Artist - Title")
	e.SetFontSize(1.5)
	e.SetConfiguredMode("bogus")

	want := []string{"STA|playing", "META|Artist - Title", "FONT|1.5", "MODE|lyrics"}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Errorf("Calls = %v, want %v", sink.calls, want)
	}
}
