// Package link owns the serial connection to the display device: command
// framing, inbound line parsing, and ping/pong liveness supervision.
package link

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the device firmware's UART configuration.
	DefaultBaudRate = 115200

	// PingInterval is how often a PING probe is written to the link.
	PingInterval = 2 * time.Second
	// PongTimeout is how long the link may stay silent before it is
	// declared dead and torn down.
	PongTimeout = 5 * time.Second

	readTimeout    = 100 * time.Millisecond
	readerJoinWait = 2 * time.Second
	eventQueueSize = 16
)

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventButtonPress
	EventButtonLong
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventButtonPress:
		return "button-press"
	case EventButtonLong:
		return "button-long"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a state change observed on the link. Err is set for EventError.
type Event struct {
	Kind EventKind
	Err  error
}

// ListPorts returns the names of the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}

// Conn manages one serial link to the device.
//
// A reader goroutine assembles inbound lines and a heartbeat goroutine
// probes liveness; everything the rest of the application needs to know
// arrives as Events. The physical handle is never shared: callers only
// observe emitted events.
type Conn struct {
	mu       sync.Mutex // guards port handle and writes
	port     io.ReadWriteCloser
	portName string

	running    atomic.Bool
	connected  atomic.Bool
	lastPongNs atomic.Int64

	stop       chan struct{}
	readerDone chan struct{}
	closeMu    sync.Mutex

	events chan Event
	log    *logger.Logger

	// openPort is swapped out by tests.
	openPort func(name string, baud int) (io.ReadWriteCloser, error)
	// pingInterval and pongTimeout are shortened by tests.
	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewConn() *Conn {
	return &Conn{
		events:       make(chan Event, eventQueueSize),
		log:          logger.GetLogger(),
		openPort:     openSerialPort,
		pingInterval: PingInterval,
		pongTimeout:  PongTimeout,
	}
}

func openSerialPort(name string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Events is the stream of link state changes, consumed by the owner's
// event loop.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Connected reports whether a PONG has confirmed the peer since Open.
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// PortName returns the name of the most recently opened port.
func (c *Conn) PortName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.portName
}

// Open acquires the serial handle, starts the reader and heartbeat, and
// sends an initial PING so a live device is discovered quickly. The link
// is not reported connected until the first PONG arrives. Open fails
// immediately when the port cannot be acquired; there is no retry.
func (c *Conn) Open(portName string, baud int) error {
	c.Close()

	if baud == 0 {
		baud = DefaultBaudRate
	}

	p, err := c.openPort(portName, baud)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", portName, err)
	}

	c.mu.Lock()
	c.port = p
	c.portName = portName
	c.mu.Unlock()

	c.lastPongNs.Store(time.Now().UnixNano())
	c.stop = make(chan struct{})
	c.readerDone = make(chan struct{})
	c.running.Store(true)

	go c.readerLoop()
	go c.heartbeat(c.stop)

	c.write(cmdPing)
	c.log.Infof("link: opened %s at %d baud", portName, baud)
	return nil
}

// Close tears the link down. It is idempotent: the reader is signalled and
// joined with a bounded wait so a stuck read cannot hang the caller, the
// handle is released, and a disconnect event is emitted exactly once if the
// link had been confirmed connected.
func (c *Conn) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if !c.running.Swap(false) {
		return
	}
	close(c.stop)

	select {
	case <-c.readerDone:
	case <-time.After(readerJoinWait):
		c.log.Warnf("link: reader on %s did not stop in time", c.portName)
	}

	c.mu.Lock()
	if c.port != nil {
		c.port.Close()
		c.port = nil
	}
	c.mu.Unlock()

	if c.connected.Swap(false) {
		c.emit(Event{Kind: EventDisconnected})
	}
	c.log.Infof("link: closed %s", c.portName)
}

// Send helpers are best-effort: on a closed link the command is silently
// dropped and the heartbeat surfaces the underlying problem.

func (c *Conn) SendClear()                 { c.write(cmdClear) }
func (c *Conn) SendText(text string)       { c.write(encodeText(text)) }
func (c *Conn) SendMeta(text string)       { c.write(encodeMeta(text)) }
func (c *Conn) SendFontSize(size float64)  { c.write(encodeFontSize(size)) }
func (c *Conn) SendState(state string)     { c.write(encodeState(state)) }
func (c *Conn) SendMode(mode string)       { c.write(encodeMode(mode)) }
func (c *Conn) SendEqualizer(levels []int) { c.write(EncodeEqualizer(levels)) }

func (c *Conn) write(cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil || !c.running.Load() {
		return
	}
	if _, err := c.port.Write([]byte(cmd + "\n")); err != nil {
		// Stay quiet: the pong timeout reports the dead link once instead
		// of an error per dropped write.
		c.log.Debugf("link: write failed: %v", err)
	}
}

// readerLoop runs on its own goroutine. The blocking read happens outside
// the write mutex so a slow read never starves outgoing commands; only the
// brief handle lookup is guarded.
func (c *Conn) readerLoop() {
	defer close(c.readerDone)

	buf := make([]byte, 256)
	var pending string

	for c.running.Load() {
		c.mu.Lock()
		p := c.port
		c.mu.Unlock()
		if p == nil {
			return
		}

		n, err := p.Read(buf)
		if err != nil {
			if c.running.Load() && c.connected.CompareAndSwap(true, false) {
				c.emit(Event{Kind: EventDisconnected})
			}
			return
		}
		if n == 0 {
			continue // read timeout
		}

		pending += string(buf[:n])
		for {
			line, rest, found := strings.Cut(pending, "\n")
			if !found {
				break
			}
			pending = rest
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			c.processLine(line)
		}
	}
}

func (c *Conn) processLine(line string) {
	switch line {
	case msgPong:
		c.lastPongNs.Store(time.Now().UnixNano())
		if c.connected.CompareAndSwap(false, true) {
			c.emit(Event{Kind: EventConnected})
		}
	case msgButtonPress:
		c.emit(Event{Kind: EventButtonPress})
	case msgButtonLong:
		c.emit(Event{Kind: EventButtonLong})
	default:
		// Unrecognized lines are ignored.
	}
}

// heartbeat probes the peer every pingInterval and tears the link down when
// it has been silent longer than pongTimeout. The teardown is scheduled on a
// separate goroutine rather than run inline, so the tick that detects the
// fault never closes the machinery it is running on.
func (c *Conn) heartbeat(stop chan struct{}) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !c.running.Load() {
				return
			}
			c.write(cmdPing)
			silent := time.Since(time.Unix(0, c.lastPongNs.Load()))
			if silent > c.pongTimeout {
				c.connected.Store(false)
				c.emit(Event{Kind: EventError, Err: fmt.Errorf("no response from %s", c.portName)})
				c.emit(Event{Kind: EventDisconnected})
				go c.Close()
				return
			}
		}
	}
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warnf("link: event queue full, dropping %s", ev.Kind)
	}
}
