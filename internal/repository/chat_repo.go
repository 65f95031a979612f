package repository

import (
	"context"
	"fmt"

	"omdraw/internal/middleware"
	"omdraw/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

/*
LEARNING: REPLAYABLE HISTORY

Chats are append-only. A new client replays the most recent N rows of a room
in insertion order to rebuild the canvas, so ListRecentChats selects the
newest rows and hands them back oldest first.
*/

// MaxChatLimit caps a single history read.
const MaxChatLimit = 500

// ChatRepositoryImpl stores relayed messages.
type ChatRepositoryImpl struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepositoryImpl {
	return &ChatRepositoryImpl{db: db}
}

// CreateChat appends a message to a room's history.
func (r *ChatRepositoryImpl) CreateChat(ctx context.Context, roomID uint, message, senderID string) error {
	ctx, span := middleware.StartSpan(ctx, "ChatRepository.CreateChat", attribute.Int("room.id", int(roomID)))
	defer span.End()

	chat := &models.Chat{
		RoomID:  roomID,
		Message: message,
		UserID:  senderID,
	}

	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		middleware.AddSpanError(ctx, err)
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// ListRecentChats returns up to limit of the room's newest chats, oldest
// first.
func (r *ChatRepositoryImpl) ListRecentChats(ctx context.Context, roomID uint, limit int) ([]*models.Chat, error) {
	if limit <= 0 || limit > MaxChatLimit {
		limit = MaxChatLimit
	}

	ctx, span := middleware.StartSpan(ctx, "ChatRepository.ListRecentChats",
		attribute.Int("room.id", int(roomID)),
		attribute.Int("limit", limit),
	)
	defer span.End()

	var chats []*models.Chat
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
	return chats, nil
}
