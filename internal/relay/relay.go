package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"omdraw/internal/middleware"
	"omdraw/internal/models"
	"omdraw/internal/protocol"
	"omdraw/internal/repository"
)

/*
LEARNING: ROOM RELAY

Every connection gets a read pump and a write pump. The read pump handles its
connection's frames one at a time, so a single client never has more than one
store call in flight, while different clients run in parallel.

	join_room  -> add to membership set, provision user + room
	leave_room -> remove from membership set
	chat       -> resolve room, persist, fan out to members

The relay never parses the chat "message". It is opaque text passed from the
sender to the store and to every member of the room.
*/

type Config struct {
	ReadBuffer      int
	WriteBuffer     int
	SendBuffer      int
	MaxMessageBytes int64
	RateLimit       float64 // frames per second per connection; 0 disables
	RateBurst       int
	IdleTimeout     time.Duration // 0 disables the sweep
	SweepInterval   time.Duration
}

// Relay routes frames between connections in the same room.
type Relay struct {
	cfg      Config
	registry *Registry
	store    HistoryStore
	verifier TokenVerifier
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a relay over registry. The registry is owned by the caller so
// tests can inspect it.
func New(cfg Config, registry *Registry, store HistoryStore, verifier TokenVerifier, logger zerolog.Logger) *Relay {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = 1024
	}
	if cfg.WriteBuffer <= 0 {
		cfg.WriteBuffer = 1024
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		cfg:      cfg,
		registry: registry,
		store:    store,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBuffer,
			WriteBufferSize: cfg.WriteBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Registry exposes the live connection set.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Start launches the idle sweep.
func (r *Relay) Start() {
	if r.cfg.IdleTimeout > 0 {
		go r.sweepLoop()
	}
	r.logger.Info().Msg("✓ Room relay started")
}

// Shutdown closes every connection. Pumps exit on their own.
func (r *Relay) Shutdown() {
	r.stopOnce.Do(func() {
		r.cancel()
		for _, c := range r.registry.Snapshot() {
			r.disconnect(c)
		}
		r.logger.Info().Msg("✓ Room relay shutdown complete")
	})
}

// HandleMessage processes one inbound frame from c.
func (r *Relay) HandleMessage(ctx context.Context, c *Connection, raw []byte) {
	ctx, span := middleware.StartSpan(ctx, "Relay.HandleMessage",
		attribute.String("connection.id", c.ID),
		attribute.String("user.id", c.UserID),
		attribute.Int("message.size", len(raw)),
	)
	defer span.End()

	log := r.logger.With().Str("conn_id", c.ID).Str("user_id", c.UserID).Logger()

	msg, err := protocol.ParseClientMessage(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring malformed frame")
		middleware.AddSpanError(ctx, err)
		return
	}
	if msg.RoomID == "" {
		log.Warn().Str("type", string(msg.Type)).Msg("ignoring frame without roomId")
		return
	}
	span.SetAttributes(attribute.String("message.type", string(msg.Type)), attribute.String("room", msg.RoomID))

	switch msg.Type {
	case protocol.TypeJoinRoom:
		if c.Join(msg.RoomID) {
			log.Info().Str("room", msg.RoomID).Msg("joined room")
		}
		r.provision(ctx, c, msg.RoomID)

	case protocol.TypeLeaveRoom:
		if c.Leave(msg.RoomID) {
			log.Info().Str("room", msg.RoomID).Msg("left room")
		}

	case protocol.TypeChat:
		r.handleChat(ctx, c, msg)
	}
}

// provision makes sure the store knows this user and room. Failures are
// logged; membership stands regardless.
func (r *Relay) provision(ctx context.Context, c *Connection, room string) {
	log := r.logger.With().Str("conn_id", c.ID).Str("user_id", c.UserID).Str("room", room).Logger()

	_, err := r.store.FindUserByID(ctx, c.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = r.store.CreateUser(ctx, models.PlaceholderUser(c.UserID))
		if err != nil && !errors.Is(err, repository.ErrUserExists) {
			log.Error().Err(err).Msg("failed to provision placeholder user")
			middleware.AddSpanError(ctx, err)
		}
	case err != nil:
		log.Error().Err(err).Msg("failed to look up user")
		middleware.AddSpanError(ctx, err)
	}

	if _, err := r.store.UpsertRoomBySlug(ctx, room, c.UserID); err != nil {
		log.Error().Err(err).Msg("failed to upsert room")
		middleware.AddSpanError(ctx, err)
	}
}

func (r *Relay) handleChat(ctx context.Context, c *Connection, msg protocol.ClientMessage) {
	log := r.logger.With().Str("conn_id", c.ID).Str("user_id", c.UserID).Str("room", msg.RoomID).Logger()

	room, err := r.store.FindRoomBySlug(ctx, msg.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn().Msg("dropping chat for unknown room")
		} else {
			log.Error().Err(err).Msg("failed to resolve room, dropping chat")
		}
		middleware.AddSpanError(ctx, err)
		return
	}

	if err := r.store.CreateChat(ctx, room.ID, msg.Message, c.UserID); err != nil {
		log.Error().Err(err).Msg("failed to persist chat")
		middleware.AddSpanError(ctx, err)
	}

	frame, err := protocol.Encode(protocol.ServerMessage{
		Type:    protocol.TypeChat,
		Message: msg.Message,
		RoomID:  msg.RoomID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode broadcast")
		return
	}

	delivered := r.Broadcast(msg.RoomID, frame)
	log.Debug().Int("delivered", delivered).Msg("chat relayed")
}

// Broadcast queues frame for every member of room and returns how many
// accepted it. A member whose queue is full is disconnected.
func (r *Relay) Broadcast(room string, frame []byte) int {
	delivered := 0
	for _, member := range r.registry.Members(room) {
		if member.Enqueue(frame) {
			delivered++
			continue
		}
		r.logger.Warn().Str("conn_id", member.ID).Msg("⚠️  send buffer full, closing connection")
		r.disconnect(member)
	}
	return delivered
}

// disconnect removes c from the registry and closes it. Safe to call twice.
func (r *Relay) disconnect(c *Connection) {
	if _, ok := r.registry.Remove(c.ID); ok {
		r.logger.Info().
			Str("conn_id", c.ID).
			Str("user_id", c.UserID).
			Int("remaining", r.registry.Len()).
			Msg("connection closed")
	}
	c.Close()
}

func (r *Relay) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Sweep closes connections idle longer than the configured timeout and
// returns how many it closed.
func (r *Relay) Sweep(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	closed := 0
	for _, c := range r.registry.Snapshot() {
		if now.Sub(c.LastActive()) > r.cfg.IdleTimeout {
			r.logger.Info().Str("conn_id", c.ID).Msg("closing idle connection")
			r.disconnect(c)
			closed++
		}
	}
	return closed
}
