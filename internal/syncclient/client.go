package syncclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"omdraw/internal/draw"
	"omdraw/internal/eventloop"
	"omdraw/internal/protocol"
	"omdraw/internal/shape"
)

/*
LEARNING: ONE LOGICAL THREAD, MANY GOROUTINES

The client has three kinds of goroutines: the event loop, one reader and one
writer per live connection, and the dial/timer callbacks. Only the event loop
touches the drawing session. Everything else posts a closure onto the loop:

	dial goroutine   --Post(handleDial)-->   loop
	reader goroutine --Post(handleFrame)-->  loop
	timer            --Post(reconnect)-->    loop

Outbound frames go the other way through a buffered channel drained by the
writer, so a slow socket never blocks a pointer handler.
*/

var (
	// ErrNoCredential means the client was started without a token.
	ErrNoCredential = errors.New("no credential")
	// ErrLoopStopped means the event loop was gone before the client started.
	ErrLoopStopped = errors.New("event loop stopped")
)

// DefaultReconnectDelay is the fixed wait between a close and the next dial.
const DefaultReconnectDelay = time.Second

// Status is the user-visible connection state.
type Status int32

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

type Config struct {
	RelayURL       string
	RoomID         string
	Token          string
	ReconnectDelay time.Duration
	SendBuffer     int
}

type Option func(*Client)

// WithScheduler replaces the timer source used for reconnects.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) { c.scheduler = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client bridges a drawing session to the room relay.
type Client struct {
	cfg       Config
	session   *draw.Session
	loop      *eventloop.Loop
	history   HistoryFetcher
	dialer    Dialer
	scheduler Scheduler
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	status    atomic.Int32
	attempts  atomic.Int64
	dropped   atomic.Int64
	destroyed atomic.Bool

	mu    sync.Mutex // guards link and timer
	link  *link
	timer Timer
}

// New creates a client and registers it as the session's publisher. history
// may be nil to start from an empty canvas.
func New(cfg Config, session *draw.Session, loop *eventloop.Loop, history HistoryFetcher, dialer Dialer, opts ...Option) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}

	c := &Client{
		cfg:       cfg,
		session:   session,
		loop:      loop,
		history:   history,
		dialer:    dialer,
		scheduler: realScheduler{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("room", cfg.RoomID).Logger()

	session.SetPublisher(c)
	return c
}

// Start seeds the session from history and opens the first connection. The
// caller should route input to the session only after Start returns.
func (c *Client) Start(ctx context.Context) error {
	if c.cfg.Token == "" {
		c.setStatus(StatusFailed)
		return ErrNoCredential
	}

	var snapshot []shape.Shape
	if c.history != nil {
		shapes, err := c.history.FetchShapes(ctx, c.cfg.RoomID)
		if err != nil {
			c.logger.Warn().Err(err).Msg("history snapshot unavailable, starting empty")
		} else {
			snapshot = shapes
		}
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	if !c.loop.Call(func() {
		c.session.Seed(snapshot)
		c.connect()
	}) {
		c.cancel()
		return ErrLoopStopped
	}

	c.logger.Info().Int("shapes", len(snapshot)).Msg("session seeded")
	return nil
}

// Status reports the connection state. Safe from any goroutine.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// Attempts is the number of connection opens tried so far.
func (c *Client) Attempts() int {
	return int(c.attempts.Load())
}

// Dropped counts local commits that were not sent because no transport was
// open.
func (c *Client) Dropped() int {
	return int(c.dropped.Load())
}

// Publish sends a locally committed shape. It runs on the event loop, called
// by the session. With no open transport the shape is dropped.
func (c *Client) Publish(s shape.Shape) {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil || c.Status() != StatusConnected {
		c.dropped.Add(1)
		c.logger.Debug().Str("shape", string(s.Kind())).Msg("not connected, shape not sent")
		return
	}

	message, err := shape.EncodeMessage(s)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode shape")
		return
	}
	frame, err := protocol.Encode(protocol.Chat(c.cfg.RoomID, message))
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode chat frame")
		return
	}
	if !l.enqueue(frame) {
		c.dropped.Add(1)
		c.logger.Warn().Msg("send buffer full, shape not sent")
	}
}

// Destroy cancels any pending reconnect and closes the live transport. The
// client can't be restarted.
func (c *Client) Destroy() {
	if c.destroyed.Swap(true) {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	l := c.link
	c.link = nil
	c.mu.Unlock()

	if l != nil {
		l.stop()
	}
	c.setStatus(StatusClosed)
	c.logger.Info().Msg("sync client destroyed")
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
}

// connect dials in the background and reports back on the loop.
func (c *Client) connect() {
	if c.destroyed.Load() {
		return
	}
	c.attempts.Add(1)
	c.setStatus(StatusConnecting)

	ctx := c.ctx
	go func() {
		conn, err := c.dialer.Dial(ctx, c.cfg.RelayURL, c.cfg.Token)
		if !c.loop.Post(func() { c.handleDial(conn, err) }) && conn != nil {
			conn.Close()
		}
	}()
}

func (c *Client) handleDial(conn Conn, err error) {
	if c.destroyed.Load() {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Int("attempt", c.Attempts()).Msg("relay connection failed")
		c.scheduleReconnect()
		return
	}

	// Destroy flips destroyed before taking mu, so checking again under mu
	// either sees it or leaves a link for Destroy to stop.
	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		conn.Close()
		return
	}
	l := newLink(conn, c.cfg.SendBuffer)
	c.link = l
	c.setStatus(StatusConnected)
	c.mu.Unlock()

	go l.writePump()
	go c.readPump(l)

	join, err := protocol.Encode(protocol.JoinRoom(c.cfg.RoomID))
	if err == nil {
		l.enqueue(join)
	}
	c.logger.Info().Int("attempt", c.Attempts()).Msg("connected to relay")
}

func (c *Client) readPump(l *link) {
	for {
		data, err := l.conn.ReadMessage()
		if err != nil {
			if !c.loop.Post(func() { c.handleClosed(l, err) }) {
				l.stop()
			}
			return
		}
		if !c.loop.Post(func() { c.handleFrame(data) }) {
			l.stop()
			return
		}
	}
}

func (c *Client) handleClosed(l *link, err error) {
	c.mu.Lock()
	current := c.link == l
	if current {
		c.link = nil
	}
	c.mu.Unlock()

	l.stop()
	if !current || c.destroyed.Load() {
		return
	}

	c.logger.Info().Err(err).Dur("retry_in", c.cfg.ReconnectDelay).Msg("relay connection closed")
	c.scheduleReconnect()
}

// scheduleReconnect arms exactly one timer; a second close before it fires
// doesn't add another.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed.Load() {
		return
	}
	c.setStatus(StatusConnecting)
	if c.timer != nil {
		return
	}
	c.timer = c.scheduler.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.loop.Post(c.fireReconnect)
	})
}

func (c *Client) fireReconnect() {
	c.mu.Lock()
	c.timer = nil
	c.mu.Unlock()
	c.connect()
}

func (c *Client) handleFrame(data []byte) {
	msg, err := protocol.ParseServerMessage(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring malformed frame")
		return
	}
	if msg.Type != protocol.TypeChat {
		c.logger.Debug().Str("type", string(msg.Type)).Msg("ignoring frame")
		return
	}

	s, err := shape.DecodeMessage(msg.Message)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring undecodable shape")
		return
	}
	c.session.ApplyRemote(s)
}

// link is one live connection with its outbound queue.
type link struct {
	conn Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newLink(conn Conn, buffer int) *link {
	return &link{
		conn: conn,
		out:  make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (l *link) enqueue(frame []byte) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.out <- frame:
		return true
	default:
		return false
	}
}

func (l *link) writePump() {
	for {
		select {
		case <-l.done:
			return
		case frame := <-l.out:
			if err := l.conn.WriteMessage(frame); err != nil {
				l.stop()
				return
			}
		}
	}
}

func (l *link) stop() {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}
