package repository

import (
	"context"
	"errors"
	"fmt"

	"omdraw/internal/models"

	"gorm.io/gorm"
)

// ErrUserExists is returned by CreateUser when the id or email is taken.
var ErrUserExists = errors.New("user already exists")

// UserRepositoryImpl stores identities.
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// FindUserByID returns ErrNotFound when no user has the given id.
func (r *UserRepositoryImpl) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

// CreateUser inserts user. Two connections of the same guest can race here;
// the loser gets ErrUserExists.
func (r *UserRepositoryImpl) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.ID, ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
