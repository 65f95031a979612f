package relay

import (
	"context"

	"omdraw/internal/models"
)

// HistoryStore is what the relay needs from durable storage. All calls are
// fallible remote operations; the relay logs failures and never retries.
type HistoryStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpsertRoomBySlug(ctx context.Context, slug, adminID string) (*models.Room, error)
	FindRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	CreateChat(ctx context.Context, roomID uint, message, senderID string) error
}

// TokenVerifier turns a bearer credential into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
