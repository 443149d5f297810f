package app

import (
	"errors"
	"testing"

	"github.com/KayLAN-Smith/lyric-display-esp32/internal/config"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/link"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/lyrics"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/oled"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/player"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(config.Default(), nil, false)
	t.Cleanup(a.Close)
	return a
}

func contentPixels(r *oled.Renderer) int {
	fb := r.Frame()
	n := 0
	for y := 0; y < oled.ContentHeight; y++ {
		for x := 0; x < oled.Width; x++ {
			if fb.Get(x, y) {
				n++
			}
		}
	}
	return n
}

func TestLinkSinkDropsWhileDisconnected(t *testing.T) {
	conn := link.NewConn()
	sink := linkSink{conn: conn}

	// Nothing is open, so every command must be silently dropped.
	sink.Clear()
	sink.SetText("hello")
	sink.SetFontSize(2.0)
	sink.SetMode("lyrics")
	sink.SetState("playing")
	sink.SetMeta("meta")
	sink.SetEqualizer([]int{1, 2, 3})
}

func TestPositionEventDrivesPreview(t *testing.T) {
	a := newTestApp(t)
	a.engine.LoadLines([]lyrics.Line{
		{Index: 1, StartMs: 0, EndMs: 5000, Text: "hello world"},
	})

	if contentPixels(a.screen) != 0 {
		t.Fatal("Preview should start blank")
	}

	a.handlePlayer(player.Event{Kind: player.PositionChanged, PositionMs: 1000})
	if contentPixels(a.screen) == 0 {
		t.Error("Resolved lyric should render on the preview")
	}
}

func TestStateEventReachesPreview(t *testing.T) {
	a := newTestApp(t)

	a.handlePlayer(player.Event{Kind: player.StateChanged, State: "playing"})

	// Playing draws the triangle icon in the status bar.
	fb := a.screen.Frame()
	found := false
	for y := oled.StatusBarY; y < oled.Height; y++ {
		if fb.Get(oled.IconX, y) {
			found = true
			break
		}
	}
	if !found {
		t.Error("Play icon missing after state change")
	}
}

func TestEndedOnLastTrackFinishesSession(t *testing.T) {
	a := newTestApp(t)
	a.queue = []store.Track{{ID: "t1", Title: "Only"}}
	a.queuePos = 0

	if done := a.handlePlayer(player.Event{Kind: player.Ended}); !done {
		t.Error("Ended on the last queue entry should finish the session")
	}
}

func TestButtonPressTogglesPlayback(t *testing.T) {
	a := newTestApp(t)
	a.player.Load("track.wav", 60000)

	a.handleLink(link.Event{Kind: link.EventButtonPress})
	if !a.player.IsPlaying() {
		t.Fatal("Button press should start playback")
	}
	a.handleLink(link.Event{Kind: link.EventButtonPress})
	if a.player.IsPlaying() {
		t.Fatal("Second press should pause")
	}
}

func TestLongPressAtQueueEndStops(t *testing.T) {
	a := newTestApp(t)
	a.queue = []store.Track{{ID: "t1"}}
	a.queuePos = 0
	a.player.Load("track.wav", 60000)
	a.player.Play()

	a.handleLink(link.Event{Kind: link.EventButtonLong})
	if a.player.State() != player.StateStopped {
		t.Errorf("Long press past the last track should stop, got %q", a.player.State())
	}
}

func TestConnectedEventReplaysDisplayState(t *testing.T) {
	a := newTestApp(t)

	// Show the play icon locally, then let the device join: the replay
	// must push the player's real state (stopped), not the stale one.
	a.handlePlayer(player.Event{Kind: player.StateChanged, State: "playing"})
	a.handleLink(link.Event{Kind: link.EventConnected})

	fb := a.screen.Frame()
	square := 0
	for y := oled.StatusBarY; y < oled.StatusBarY+9; y++ {
		for x := oled.IconX; x < oled.IconX+9; x++ {
			if fb.Get(x, y) {
				square++
			}
		}
	}
	if square != 81 {
		t.Errorf("Expected the stop square after state replay, got %d pixels", square)
	}
}

func TestLinkNoticesAreHandled(t *testing.T) {
	a := newTestApp(t)

	// Informational events must not disturb playback state.
	a.player.Load("track.wav", 60000)
	a.player.Play()
	a.handleLink(link.Event{Kind: link.EventDisconnected})
	a.handleLink(link.Event{Kind: link.EventError, Err: errors.New("no response from COM7")})
	if !a.player.IsPlaying() {
		t.Error("Link notices should not stop playback")
	}
}

func TestAdjustOffsetWithoutStore(t *testing.T) {
	a := newTestApp(t)
	a.queue = []store.Track{{ID: "t1"}}
	a.queuePos = 0

	a.AdjustOffset(50)
	a.AdjustOffset(-20)
	if got := a.engine.TrackOffset(); got != 30 {
		t.Errorf("TrackOffset = %d, want 30", got)
	}
}

func TestConnectRequiresPort(t *testing.T) {
	a := newTestApp(t)
	if err := a.Connect(""); err == nil {
		t.Error("Connect with no port should fail")
	}
}
