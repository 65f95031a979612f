package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"omdraw/internal/shape"
)

// HistoryFetcher loads the shapes a room already holds.
type HistoryFetcher interface {
	FetchShapes(ctx context.Context, roomSlug string) ([]shape.Shape, error)
}

// HTTPHistory reads room history from the relay's REST API: the room is
// resolved by slug, then its recent chats are decoded into shapes.
type HTTPHistory struct {
	BaseURL string
	Client  *http.Client
	Limit   int
	Logger  zerolog.Logger
}

// NewHTTPHistory returns a fetcher for the API rooted at baseURL.
func NewHTTPHistory(baseURL string, logger zerolog.Logger) *HTTPHistory {
	return &HTTPHistory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

type roomResponse struct {
	Room struct {
		ID   uint   `json:"id"`
		Slug string `json:"slug"`
	} `json:"room"`
}

type chatsResponse struct {
	Messages []struct {
		ID      uint   `json:"id"`
		Message string `json:"message"`
	} `json:"messages"`
}

// FetchShapes returns the room's shapes in draw order. A room that doesn't
// exist yet has no shapes. Chat records that don't decode are skipped.
func (h *HTTPHistory) FetchShapes(ctx context.Context, roomSlug string) ([]shape.Shape, error) {
	var room roomResponse
	found, err := h.getJSON(ctx, "/api/rooms/"+url.PathEscape(roomSlug), &room)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room %q: %w", roomSlug, err)
	}
	if !found {
		return nil, nil
	}

	path := fmt.Sprintf("/api/chats/%d", room.Room.ID)
	if h.Limit > 0 {
		path += fmt.Sprintf("?limit=%d", h.Limit)
	}

	var chats chatsResponse
	if _, err := h.getJSON(ctx, path, &chats); err != nil {
		return nil, fmt.Errorf("failed to load chats for room %q: %w", roomSlug, err)
	}

	shapes := make([]shape.Shape, 0, len(chats.Messages))
	for _, m := range chats.Messages {
		s, err := shape.DecodeMessage(m.Message)
		if err != nil {
			h.Logger.Warn().Err(err).Uint("chat_id", m.ID).Str("room", roomSlug).Msg("skipping undecodable history entry")
			continue
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

// getJSON decodes a 200 response into v. A 404 reports found=false.
func (h *HTTPHistory) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}
