package api

import (
	"context"
	"net/http"

	"omdraw/internal/models"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES

The handlers only need to read history, so they declare exactly that. The
gorm HistoryRepositoryImpl satisfies it in production; tests pass a mock.
*/

// HistoryReader is what the REST handlers need from the history store.
type HistoryReader interface {
	FindRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	ListRecentChats(ctx context.Context, roomID uint, limit int) ([]*models.Chat, error)
}

// SocketServer admits relay websocket clients.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}
