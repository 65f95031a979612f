package repository

import (
	"context"
	"errors"
	"fmt"

	"omdraw/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepositoryImpl maps room slugs to durable room rows.
type RoomRepositoryImpl struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepositoryImpl {
	return &RoomRepositoryImpl{db: db}
}

// UpsertRoomBySlug creates the room with adminID as owner if the slug is new,
// and returns the stored row either way. An existing room keeps its admin.
func (r *RoomRepositoryImpl) UpsertRoomBySlug(ctx context.Context, slug, adminID string) (*models.Room, error) {
	room := &models.Room{Slug: slug, AdminID: adminID}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).
		Create(room).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert room: %w", err)
	}

	// ON CONFLICT DO NOTHING leaves the id unset when the row already existed.
	if room.ID == 0 {
		return r.FindRoomBySlug(ctx, slug)
	}
	return room, nil
}

// FindRoomBySlug returns ErrNotFound for an unknown slug.
func (r *RoomRepositoryImpl) FindRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	var room models.Room

	err := r.db.WithContext(ctx).First(&room, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	return &room, nil
}
