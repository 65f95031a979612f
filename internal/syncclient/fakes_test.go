package syncclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"omdraw/internal/shape"
)

const waitFor = 2 * time.Second

var errClosed = errors.New("closed")

type fakeConn struct {
	inbound chan []byte
	written chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, errClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}
	c.written <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// nextWritten waits for the next outbound frame.
func (c *fakeConn) nextWritten(t *testing.T) string {
	t.Helper()
	select {
	case data := <-c.written:
		return string(data)
	case <-time.After(waitFor):
		t.Fatal("no frame written")
		return ""
	}
}

func (c *fakeConn) assertNothingWritten(t *testing.T) {
	t.Helper()
	select {
	case data := <-c.written:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

type dialResult struct {
	conn *fakeConn
	err  error
}

type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	tokens   []string
	failures int // fail this many dials before succeeding
	opened   chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{opened: make(chan dialResult, 64)}
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint, token string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.tokens = append(d.tokens, token)
	fail := d.failures > 0
	if fail {
		d.failures--
	}
	d.mu.Unlock()

	if fail {
		d.opened <- dialResult{err: errors.New("connection refused")}
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.opened <- dialResult{conn: conn}
	return conn, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// next waits for the next dial and returns its connection (nil on a failed
// dial).
func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case r := <-d.opened:
		return r.conn
	case <-time.After(waitFor):
		t.Fatal("no dial attempted")
		return nil
	}
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the callback unless the timer was stopped.
func (t *fakeTimer) fire() {
	if !t.isStopped() {
		t.fn()
	}
}

type fakeScheduler struct {
	armed chan *fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: make(chan *fakeTimer, 64)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	timer := &fakeTimer{delay: d, fn: f}
	s.armed <- timer
	return timer
}

func (s *fakeScheduler) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-s.armed:
		return timer
	case <-time.After(waitFor):
		t.Fatal("no reconnect scheduled")
		return nil
	}
}

func (s *fakeScheduler) assertNoneArmed(t *testing.T) {
	t.Helper()
	select {
	case timer := <-s.armed:
		t.Fatalf("unexpected reconnect scheduled after %v", timer.delay)
	case <-time.After(50 * time.Millisecond):
	}
}

type staticHistory struct {
	shapes []shape.Shape
	err    error
	calls  int
}

func (h *staticHistory) FetchShapes(ctx context.Context, roomSlug string) ([]shape.Shape, error) {
	h.calls++
	return h.shapes, h.err
}
