package link

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory stand-in for a serial handle. Reads time out
// like the real port (returning n=0) when the device has nothing to say.
type fakePort struct {
	mu      sync.Mutex
	inbound chan []byte
	written bytes.Buffer
	closed  bool
}

func newFakePort() *fakePort {
	return &fakePort{inbound: make(chan []byte, 32)}
}

func (f *fakePort) Read(p []byte) (int, error) {
	select {
	case data := <-f.inbound:
		return copy(p, data), nil
	case <-time.After(5 * time.Millisecond):
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			return 0, io.ErrClosedPipe
		}
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) writtenString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

// deviceSays queues raw bytes as if the device had transmitted them.
func (f *fakePort) deviceSays(s string) {
	f.inbound <- []byte(s)
}

func newTestConn(t *testing.T, port *fakePort) *Conn {
	t.Helper()
	c := NewConn()
	c.openPort = func(name string, baud int) (io.ReadWriteCloser, error) {
		return port, nil
	}
	c.pingInterval = 20 * time.Millisecond
	c.pongTimeout = 60 * time.Millisecond
	t.Cleanup(c.Close)
	return c
}

func waitEvent(t *testing.T, c *Conn, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s event", kind)
		}
	}
}

func expectNoEvent(t *testing.T, c *Conn, kind EventKind, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				t.Fatalf("Unexpected %s event", kind)
			}
		case <-deadline:
			return
		}
	}
}

func TestOpenSendsInitialPing(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)

	if err := c.Open("COM7", DefaultBaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if !strings.HasPrefix(port.writtenString(), "PING\n") {
		t.Errorf("Expected an immediate PING, wrote %q", port.writtenString())
	}
	if c.Connected() {
		t.Error("Link must not be connected before the first PONG")
	}
}

func TestOpenFailureSurfacesPortName(t *testing.T) {
	c := NewConn()
	c.openPort = func(name string, baud int) (io.ReadWriteCloser, error) {
		return nil, io.ErrUnexpectedEOF
	}
	err := c.Open("COM9", DefaultBaudRate)
	if err == nil {
		t.Fatal("Expected an error when the port cannot be acquired")
	}
	if !strings.Contains(err.Error(), "COM9") {
		t.Errorf("Error %q does not name the offending port", err)
	}
}

func TestFirstPongConnects(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	port.deviceSays("PONG\n")
	waitEvent(t, c, EventConnected)

	if !c.Connected() {
		t.Error("Connected() should be true after the first PONG")
	}

	// A second PONG refreshes liveness but emits no duplicate connect event
	port.deviceSays("PONG\n")
	expectNoEvent(t, c, EventConnected, 50*time.Millisecond)
}

func TestButtonEvents(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	port.deviceSays("PONG\n")
	waitEvent(t, c, EventConnected)

	port.deviceSays("BTN|PRESS\n")
	waitEvent(t, c, EventButtonPress)

	port.deviceSays("BTN|LONG\n")
	waitEvent(t, c, EventButtonLong)
}

func TestPartialLinesAndGarbage(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	// A line split across reads, CRLF framing, noise, and blank lines
	port.deviceSays("garbage line\r\n")
	port.deviceSays("\r\n")
	port.deviceSays("BTN|PR")
	port.deviceSays("ESS\r\nPO")
	port.deviceSays("NG\n")

	waitEvent(t, c, EventButtonPress)
	waitEvent(t, c, EventConnected)
}

func TestHeartbeatTimeout(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	port.deviceSays("PONG\n")
	waitEvent(t, c, EventConnected)

	// Device goes silent: expect exactly one error/disconnect pair
	ev := waitEvent(t, c, EventError)
	if ev.Err == nil || !strings.Contains(ev.Err.Error(), "COM7") {
		t.Errorf("Timeout error %v should name the silent port", ev.Err)
	}
	waitEvent(t, c, EventDisconnected)

	if c.Connected() {
		t.Error("Link should not be connected after a pong timeout")
	}

	// The scheduled close must not emit a second disconnect, and neither
	// may an explicit Close afterwards.
	expectNoEvent(t, c, EventDisconnected, 150*time.Millisecond)
	c.Close()
	expectNoEvent(t, c, EventDisconnected, 50*time.Millisecond)
}

func TestCloseEmitsDisconnectOnce(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	port.deviceSays("PONG\n")
	waitEvent(t, c, EventConnected)

	c.Close()
	waitEvent(t, c, EventDisconnected)

	c.Close()
	expectNoEvent(t, c, EventDisconnected, 50*time.Millisecond)
}

func TestCloseWithoutConnectEmitsNothing(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	c.Close()
	expectNoEvent(t, c, EventDisconnected, 50*time.Millisecond)
}

func TestSendOnClosedLinkIsDropped(t *testing.T) {
	c := NewConn()
	// Never opened: all sends are silently dropped
	c.SendClear()
	c.SendText("hello")
	c.SendEqualizer([]int{1, 2, 3})
}

func TestCommandsWrittenInOrder(t *testing.T) {
	port := newFakePort()
	c := newTestConn(t, port)
	if err := c.Open("COM7", 0); err != nil {
		t.Fatal(err)
	}

	c.SendMode("equalizer")
	c.SendText("line one")
	c.SendState("playing")
	c.SendMeta("Artist – Title")

	out := port.writtenString()
	order := []string{"MODE|EQ\n", "TXT|line one\n", "STA|PLAY\n", "META|Artist – Title\n"}
	last := -1
	for _, cmd := range order {
		idx := strings.Index(out, cmd)
		if idx < 0 {
			t.Fatalf("Command %q missing from output %q", cmd, out)
		}
		if idx < last {
			t.Errorf("Command %q out of order in %q", cmd, out)
		}
		last = idx
	}
}
