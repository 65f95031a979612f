package relay

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/time/rate"
)

// Connection is one authenticated client socket and the rooms it has joined.
type Connection struct {
	ID          string
	UserID      string
	ConnectedAt time.Time

	mu    sync.RWMutex
	rooms map[string]struct{}

	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	limiter    *rate.Limiter
	lastActive atomic.Int64
}

// NewConnection creates a connection for userID with an outbound queue of
// sendBuffer frames. A nil limiter admits every inbound frame.
func NewConnection(userID string, sendBuffer int, limiter *rate.Limiter) *Connection {
	now := time.Now()
	c := &Connection{
		ID:          ksuid.New().String(),
		UserID:      userID,
		ConnectedAt: now,
		rooms:       make(map[string]struct{}),
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		limiter:     limiter,
	}
	c.lastActive.Store(now.UnixNano())
	return c
}

// Join adds room to the membership set. It reports whether the room was new.
func (c *Connection) Join(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room]; ok {
		return false
	}
	c.rooms[room] = struct{}{}
	return true
}

// Leave removes room. It reports whether the room was a member.
func (c *Connection) Leave(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	delete(c.rooms, room)
	return true
}

func (c *Connection) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// Rooms returns the membership set, sorted.
func (c *Connection) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Enqueue queues an outbound frame without blocking. It returns false if the
// connection is closed or its queue is full.
func (c *Connection) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close marks the connection finished. The write pump closes the socket.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Allow reports whether the rate limiter admits one more inbound frame.
func (c *Connection) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// LastActive is the time of the last inbound frame or pong.
func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}
