package relay

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"omdraw/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ServeWS admits a websocket client. The credential comes from the "token"
// query parameter and is checked once, before the upgrade; a bad or missing
// token gets a 401 and nothing is ever read from the socket.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request) {
	ctx, span := middleware.StartSpan(req.Context(), "Relay.Admit")
	defer span.End()

	userID, err := r.verifier.Verify(req.URL.Query().Get("token"))
	if err != nil {
		r.logger.Warn().Err(err).Str("remote", req.RemoteAddr).Msg("rejecting connection")
		middleware.AddSpanError(ctx, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		r.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		middleware.AddSpanError(ctx, err)
		return
	}

	var limiter *rate.Limiter
	if r.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.RateLimit), r.cfg.RateBurst)
	}

	c := NewConnection(userID, r.cfg.SendBuffer, limiter)
	r.registry.Add(c)
	span.SetAttributes(attribute.String("connection.id", c.ID), attribute.String("user.id", userID))

	r.logger.Info().
		Str("conn_id", c.ID).
		Str("user_id", userID).
		Int("total", r.registry.Len()).
		Msg("✓ WebSocket connection established")

	go r.writePump(c, ws)
	go r.readPump(c, ws)
}

// readPump handles c's frames in arrival order until the socket fails.
func (r *Relay) readPump(c *Connection, ws *websocket.Conn) {
	defer r.disconnect(c)

	if r.cfg.MaxMessageBytes > 0 {
		ws.SetReadLimit(r.cfg.MaxMessageBytes)
	}
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				r.logger.Warn().Err(err).Str("conn_id", c.ID).Msg("websocket read error")
			}
			return
		}
		c.touch()

		if !c.Allow() {
			r.logger.Warn().Str("conn_id", c.ID).Msg("rate limit exceeded, dropping frame")
			continue
		}
		r.HandleMessage(r.ctx, c, message)
	}
}

// writePump drains c's queue to the socket and keeps it alive with pings.
// It owns closing the socket.
func (r *Relay) writePump(c *Connection, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
		r.disconnect(c)
	}()

	for {
		select {
		case <-c.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
