// Package player drives audio playback. Position is tracked on the
// process's monotonic clock so lyric sync never depends on the audio
// backend reporting timestamps; audible output, when available, comes
// from an ffplay subprocess started alongside the clock.
package player

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
)

// Play states as reported in StateChanged events.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

const (
	pollInterval   = 50 * time.Millisecond
	eventQueueSize = 64
)

// EventKind identifies a playback event.
type EventKind int

const (
	PositionChanged EventKind = iota
	DurationChanged
	StateChanged
	Ended
)

// Event is delivered on the player's event channel. PositionMs is set for
// PositionChanged, DurationMs for DurationChanged, State for StateChanged.
type Event struct {
	Kind       EventKind
	PositionMs int
	DurationMs int
	State      string
}

// Player tracks playback of a single loaded file. Safe for concurrent
// use; the position poller runs on its own goroutine while playing.
type Player struct {
	mu sync.Mutex

	state      string
	audioPath  string
	durationMs int
	volume     float64

	// baseMs is the position when the clock anchor was set; while playing,
	// the current position is baseMs plus the time elapsed since anchor.
	baseMs int
	anchor time.Time

	proc     *exec.Cmd
	pollStop chan struct{}

	events chan Event
	log    *logger.Logger

	// now and audible are swapped in tests.
	now     func() time.Time
	audible bool
}

// New builds a stopped player. Audible output is enabled when ffplay is
// on PATH; position tracking works either way.
func New() *Player {
	_, err := exec.LookPath("ffplay")
	return &Player{
		state:   StateStopped,
		volume:  0.7,
		events:  make(chan Event, eventQueueSize),
		log:     logger.GetLogger(),
		now:     time.Now,
		audible: err == nil,
	}
}

// Events returns the channel playback events are delivered on. Events
// are dropped, not blocked on, if the consumer falls behind.
func (p *Player) Events() <-chan Event {
	return p.events
}

// Load replaces the current track. Playback stops; the duration is
// announced so displays can update before the first play.
func (p *Player) Load(path string, durationMs int) {
	p.mu.Lock()
	p.stopLocked(false)
	p.audioPath = path
	p.durationMs = durationMs
	p.baseMs = 0
	p.mu.Unlock()

	p.emit(Event{Kind: DurationChanged, DurationMs: durationMs})
	p.log.Debugf("Loaded %s (%d ms)", path, durationMs)
}

// Play starts or resumes playback from the current position.
func (p *Player) Play() {
	p.mu.Lock()
	if p.state == StatePlaying || p.audioPath == "" {
		p.mu.Unlock()
		return
	}
	p.state = StatePlaying
	p.anchor = p.now()
	p.startProcLocked()
	stop := make(chan struct{})
	p.pollStop = stop
	p.mu.Unlock()

	p.emit(Event{Kind: StateChanged, State: StatePlaying})
	go p.poll(stop)
}

// Pause freezes the position and state without discarding them.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.baseMs = p.positionLocked()
	p.state = StatePaused
	p.haltLocked()
	p.mu.Unlock()

	p.emit(Event{Kind: StateChanged, State: StatePaused})
}

// Stop resets the position to zero.
func (p *Player) Stop() {
	p.mu.Lock()
	p.stopLocked(true)
	p.mu.Unlock()
}

// TogglePlayPause flips between playing and not playing; the device's
// button press maps here.
func (p *Player) TogglePlayPause() {
	if p.IsPlaying() {
		p.Pause()
	} else {
		p.Play()
	}
}

// Seek jumps to the given position, clamped to the track bounds. While
// playing, the audio process restarts at the new position.
func (p *Player) Seek(positionMs int) {
	p.mu.Lock()
	if positionMs < 0 {
		positionMs = 0
	}
	if p.durationMs > 0 && positionMs > p.durationMs {
		positionMs = p.durationMs
	}
	p.baseMs = positionMs
	p.anchor = p.now()
	if p.state == StatePlaying {
		p.killProcLocked()
		p.startProcLocked()
	}
	p.mu.Unlock()

	p.emit(Event{Kind: PositionChanged, PositionMs: positionMs})
}

// SetVolume sets the output volume, clamped to [0,1].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

// Volume returns the current output volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Position returns the current playback position in milliseconds.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Duration returns the loaded track's duration in milliseconds.
func (p *Player) Duration() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationMs
}

// State returns the current play state string.
func (p *Player) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsPlaying reports whether playback is running.
func (p *Player) IsPlaying() bool {
	return p.State() == StatePlaying
}

func (p *Player) positionLocked() int {
	if p.state != StatePlaying {
		return p.baseMs
	}
	pos := p.baseMs + int(p.now().Sub(p.anchor)/time.Millisecond)
	if p.durationMs > 0 && pos > p.durationMs {
		pos = p.durationMs
	}
	return pos
}

// stopLocked halts playback and rewinds. emitZero controls whether the
// rewind is announced, which Load suppresses.
func (p *Player) stopLocked(emitZero bool) {
	wasStopped := p.state == StateStopped
	p.state = StateStopped
	p.baseMs = 0
	p.haltLocked()
	if wasStopped {
		return
	}
	if emitZero {
		p.emit(Event{Kind: PositionChanged, PositionMs: 0})
	}
	p.emit(Event{Kind: StateChanged, State: StateStopped})
}

// haltLocked stops the poller and the audio process.
func (p *Player) haltLocked() {
	if p.pollStop != nil {
		close(p.pollStop)
		p.pollStop = nil
	}
	p.killProcLocked()
}

func (p *Player) startProcLocked() {
	if !p.audible {
		return
	}
	args := []string{
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-ss", fmt.Sprintf("%.3f", float64(p.baseMs)/1000.0),
		"-volume", fmt.Sprintf("%d", int(p.volume*100)),
		p.audioPath,
	}
	cmd := exec.Command("ffplay", args...)
	if err := cmd.Start(); err != nil {
		p.log.Warnf("ffplay failed to start, continuing silently: %v", err)
		return
	}
	p.proc = cmd
	go cmd.Wait()
}

func (p *Player) killProcLocked() {
	if p.proc == nil {
		return
	}
	if p.proc.Process != nil {
		_ = p.proc.Process.Kill()
	}
	p.proc = nil
}

// poll emits the position every tick until stopped, and fires Ended once
// the track runs out.
func (p *Player) poll(stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			pos := p.positionLocked()
			ended := p.durationMs > 0 && pos >= p.durationMs && p.state == StatePlaying
			if ended {
				p.stopLocked(false)
			}
			p.mu.Unlock()

			if pos != last {
				last = pos
				p.emit(Event{Kind: PositionChanged, PositionMs: pos})
			}
			if ended {
				p.emit(Event{Kind: Ended})
				return
			}
		}
	}
}

func (p *Player) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		p.log.Debugf("Player event queue full, dropping %d", ev.Kind)
	}
}
