package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"omdraw/internal/models"
	"omdraw/internal/repository"
	"omdraw/internal/shape"
)

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) FindRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	args := m.Called(ctx, slug)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockHistory) ListRecentChats(ctx context.Context, roomID uint, limit int) ([]*models.Chat, error) {
	args := m.Called(ctx, roomID, limit)
	chats, _ := args.Get(0).([]*models.Chat)
	return chats, args.Error(1)
}

// echoSockets upgrades and echoes one frame back.
type echoSockets struct{}

func (echoSockets) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	kind, msg, err := ws.ReadMessage()
	if err != nil {
		return
	}
	ws.WriteMessage(kind, msg)
}

func newServer(t *testing.T, history HistoryReader) *httptest.Server {
	t.Helper()
	h := NewHandler(history, Options{HistoryLimit: 50, PageWidth: 320, PageHeight: 240}, zerolog.Nop())
	srv := httptest.NewServer(SetupRoutes(h, echoSockets{}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func envelope(t *testing.T, s shape.Shape) string {
	t.Helper()
	msg, err := shape.EncodeMessage(s)
	require.NoError(t, err)
	return msg
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &mockHistory{})

	resp, body := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", gjson.GetBytes(body, "status").String())
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGetRoom(t *testing.T) {
	history := &mockHistory{}
	history.On("FindRoomBySlug", mock.Anything, "board").Return(&models.Room{ID: 4, Slug: "board", AdminID: "u1"}, nil)
	history.On("FindRoomBySlug", mock.Anything, "missing").Return(nil, fmt.Errorf("room: %w", repository.ErrNotFound))
	history.On("FindRoomBySlug", mock.Anything, "broken").Return(nil, errors.New("db down"))
	srv := newServer(t, history)

	resp, body := get(t, srv.URL+"/api/rooms/board")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(4), gjson.GetBytes(body, "room.id").Int())
	assert.Equal(t, "board", gjson.GetBytes(body, "room.slug").String())

	resp, _ = get(t, srv.URL+"/api/rooms/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/rooms/broken")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListChats(t *testing.T) {
	history := &mockHistory{}
	history.On("ListRecentChats", mock.Anything, uint(4), 50).Return([]*models.Chat{
		{ID: 1, RoomID: 4, Message: "a"},
		{ID: 2, RoomID: 4, Message: "b"},
	}, nil)
	history.On("ListRecentChats", mock.Anything, uint(4), repository.MaxChatLimit).Return(nil, nil)
	history.On("ListRecentChats", mock.Anything, uint(4), 2).Return([]*models.Chat{}, nil)
	srv := newServer(t, history)

	t.Run("default limit, oldest first", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/api/chats/4")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		msgs := gjson.GetBytes(body, "messages").Array()
		require.Len(t, msgs, 2)
		assert.Equal(t, "a", msgs[0].Get("message").String())
		assert.Equal(t, "b", msgs[1].Get("message").String())
	})

	t.Run("limit is capped", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/api/chats/4?limit=100000")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, gjson.GetBytes(body, "messages").IsArray())
		assert.Empty(t, gjson.GetBytes(body, "messages").Array())
	})

	t.Run("explicit limit", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/api/chats/4?limit=2")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bad limit", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/api/chats/4?limit=-3")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-numeric room id", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/api/chats/board")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestExportRoomPDF(t *testing.T) {
	history := &mockHistory{}
	history.On("FindRoomBySlug", mock.Anything, "board").Return(&models.Room{ID: 9, Slug: "board"}, nil)
	history.On("FindRoomBySlug", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	history.On("ListRecentChats", mock.Anything, uint(9), 50).Return([]*models.Chat{
		{ID: 1, Message: envelope(t, shape.Rect{X: 1, Y: 2, Width: 30, Height: 40})},
		{ID: 2, Message: "not a shape"},
		{ID: 3, Message: envelope(t, shape.Arrow{StartX: 0, StartY: 0, EndX: 50, EndY: 50})},
	}, nil)
	srv := newServer(t, history)

	resp, body := get(t, srv.URL+"/api/rooms/board/export.pdf?width=640&height=480")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "board.pdf")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	resp, _ = get(t, srv.URL+"/api/rooms/board/export.pdf?width=wide")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/rooms/missing/export.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketThroughMiddleware(t *testing.T) {
	srv := newServer(t, &mockHistory{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	resp.Body.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg))
}
