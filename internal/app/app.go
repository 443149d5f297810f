// Package app wires the player, sync engine, serial link, and OLED
// preview into one event loop. Everything that touches shared display
// state runs on that single loop; the only other goroutines are the
// serial reader and the audio decode task, both owned elsewhere.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/KayLAN-Smith/lyric-display-esp32/internal/config"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/engine"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/link"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/lyrics"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/oled"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/player"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/spectrum"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/store"
	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
)

const (
	equalizerTick   = 80 * time.Millisecond
	lyricScrollTick = 2 * time.Second
	metaScrollTick  = 50 * time.Millisecond
	previewTick     = 100 * time.Millisecond
)

// linkSink forwards display commands to the device, dropping them while
// the link is not confirmed alive.
type linkSink struct {
	conn *link.Conn
}

func (s linkSink) Clear() {
	if s.conn.Connected() {
		s.conn.SendClear()
	}
}

func (s linkSink) SetText(text string) {
	if s.conn.Connected() {
		s.conn.SendText(text)
	}
}

func (s linkSink) SetFontSize(size float64) {
	if s.conn.Connected() {
		s.conn.SendFontSize(size)
	}
}

func (s linkSink) SetMode(mode string) {
	if s.conn.Connected() {
		s.conn.SendMode(mode)
	}
}

func (s linkSink) SetState(state string) {
	if s.conn.Connected() {
		s.conn.SendState(state)
	}
}

func (s linkSink) SetMeta(text string) {
	if s.conn.Connected() {
		s.conn.SendMeta(text)
	}
}

func (s linkSink) SetEqualizer(levels []int) {
	if s.conn.Connected() {
		s.conn.SendEqualizer(levels)
	}
}

// App owns the playback session: one queue of tracks, one serial link,
// one engine driving both the device and the local preview.
type App struct {
	cfg      *config.Config
	store    *store.Store
	conn     *link.Conn
	player   *player.Player
	analyzer *spectrum.Analyzer
	engine   *engine.Engine
	screen   *oled.Renderer
	log      *logger.Logger

	queue    []store.Track
	queuePos int
	preview  bool
}

// New assembles an app from its parts. The store may be nil when playing
// a file outside the library.
func New(cfg *config.Config, st *store.Store, preview bool) *App {
	conn := link.NewConn()
	screen := oled.NewRenderer()
	analyzer := spectrum.NewAnalyzer()

	eng := engine.New(analyzer, linkSink{conn: conn}, screen)
	eng.SetGlobalOffset(cfg.GlobalOffsetMs)
	eng.SetVolume(cfg.Volume)

	pl := player.New()
	pl.SetVolume(cfg.Volume)

	return &App{
		cfg:      cfg,
		store:    st,
		conn:     conn,
		player:   pl,
		analyzer: analyzer,
		engine:   eng,
		screen:   screen,
		log:      logger.GetLogger(),
		preview:  preview,
	}
}

// Connect opens the serial link. The device is considered connected only
// once it answers a ping; commands sent before that are dropped.
func (a *App) Connect(port string) error {
	if port == "" {
		return fmt.Errorf("no serial port configured")
	}
	if err := a.conn.Open(port, a.cfg.BaudRate); err != nil {
		return fmt.Errorf("opening link: %w", err)
	}
	return nil
}

// Close tears down the link and playback.
func (a *App) Close() {
	a.player.Stop()
	a.conn.Close()
}

// SetQueue replaces the playback queue and starts the track at pos.
func (a *App) SetQueue(tracks []store.Track, pos int) error {
	if len(tracks) == 0 {
		return fmt.Errorf("empty queue")
	}
	if pos < 0 || pos >= len(tracks) {
		pos = 0
	}
	a.queue = tracks
	a.queuePos = pos
	return a.startTrack(&a.queue[a.queuePos])
}

// Next advances to the following queue entry, stopping at the end.
func (a *App) Next() {
	if a.queuePos+1 >= len(a.queue) {
		a.player.Stop()
		return
	}
	a.queuePos++
	if err := a.startTrack(&a.queue[a.queuePos]); err != nil {
		a.log.Warnf("Skipping unplayable track: %v", err)
		a.Next()
	}
}

// AdjustOffset nudges the current track's lyric offset and persists it.
func (a *App) AdjustOffset(deltaMs int) {
	offset := a.engine.AdjustTrackOffset(deltaMs)
	if a.store == nil {
		return
	}
	track := a.queue[a.queuePos]
	if err := a.store.SetTrackOffset(track.ID, offset); err != nil {
		a.log.Warnf("Could not persist offset for %s: %v", track.Title, err)
	}
}

func (a *App) startTrack(track *store.Track) error {
	lines, err := lyrics.ParseFile(track.SrtPath)
	if err != nil {
		a.log.Warnf("No usable lyrics for %s: %v", track.Title, err)
		lines = nil
	}

	a.engine.LoadLines(lines)
	a.engine.SetTrackOffset(track.LyricOffsetMs)
	a.engine.SetConfiguredMode(a.cfg.DisplayMode)
	a.engine.SetFontSize(a.cfg.FontSize)

	meta := track.Title
	if track.Artist != "" {
		meta = track.Artist + " - " + track.Title
	}
	a.engine.SetMeta(meta)

	a.analyzer.Load(track.AudioPath)
	a.player.Load(track.AudioPath, track.DurationMs)
	a.player.Play()
	a.log.Infof("Playing %s", meta)
	return nil
}

// Run drives the event loop until the context is cancelled or the queue
// finishes.
func (a *App) Run(ctx context.Context) error {
	eqTicker := time.NewTicker(equalizerTick)
	defer eqTicker.Stop()
	lyricTicker := time.NewTicker(lyricScrollTick)
	defer lyricTicker.Stop()
	metaTicker := time.NewTicker(metaScrollTick)
	defer metaTicker.Stop()

	var previewCh <-chan time.Time
	if a.preview {
		previewTicker := time.NewTicker(previewTick)
		defer previewTicker.Stop()
		previewCh = previewTicker.C
		fmt.Print("\x1b[2J") // clear once; frames repaint in place
	}

	for {
		select {
		case <-ctx.Done():
			a.Close()
			return ctx.Err()

		case ev := <-a.player.Events():
			if done := a.handlePlayer(ev); done {
				a.Close()
				return nil
			}

		case ev := <-a.conn.Events():
			a.handleLink(ev)

		case <-eqTicker.C:
			a.engine.TickEqualizer(a.player.Position())

		case <-lyricTicker.C:
			a.screen.TickLyricScroll()

		case <-metaTicker.C:
			a.screen.TickMetaScroll()

		case <-previewCh:
			fmt.Fprintf(os.Stdout, "\x1b[H%s", a.screen.Frame().String())
		}
	}
}

// handlePlayer reacts to one playback event; returns true when the whole
// session is over.
func (a *App) handlePlayer(ev player.Event) bool {
	switch ev.Kind {
	case player.PositionChanged:
		a.engine.OnPosition(ev.PositionMs)
	case player.StateChanged:
		a.engine.SetPlayState(ev.State)
	case player.DurationChanged:
		if a.store != nil && ev.DurationMs > 0 {
			track := a.queue[a.queuePos]
			if track.DurationMs != ev.DurationMs {
				if err := a.store.UpdateDuration(track.ID, ev.DurationMs); err != nil {
					a.log.Debugf("Duration update failed: %v", err)
				}
			}
		}
	case player.Ended:
		if a.queuePos+1 >= len(a.queue) {
			a.log.Infof("Queue finished")
			return true
		}
		a.Next()
	}
	return false
}

func (a *App) handleLink(ev link.Event) {
	switch ev.Kind {
	case link.EventConnected:
		a.log.Infof("Display connected on %s", a.conn.PortName())
		// Late join: replay the full display state so the device catches up.
		a.engine.SetConfiguredMode(a.cfg.DisplayMode)
		a.engine.SetFontSize(a.cfg.FontSize)
		a.engine.SetPlayState(a.player.State())
	case link.EventDisconnected:
		a.log.Warnf("Display disconnected")
	case link.EventButtonPress:
		a.player.TogglePlayPause()
	case link.EventButtonLong:
		a.Next()
	case link.EventError:
		a.log.Warnf("Link error: %v", ev.Err)
	}
}
