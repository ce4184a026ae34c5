package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Vigneshd705/ChatApp/internal/domain"
)

// GormPasswordRepository implements PasswordRepository using GORM.
type GormPasswordRepository struct {
	db *gorm.DB
}

// NewGormPasswordRepository creates a new GORM-based password repository.
func NewGormPasswordRepository(db *gorm.DB) *GormPasswordRepository {
	return &GormPasswordRepository{db: db}
}

// Create persists a new password record.
func (r *GormPasswordRepository) Create(ctx context.Context, user *domain.LocalUser) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	return nil
}

// GetByUsername retrieves a password record by username.
func (r *GormPasswordRepository) GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	var user domain.LocalUser
	result := r.db.WithContext(ctx).First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// handleError maps driver-level duplicate key failures onto the
// repository's sentinel error.
func (r *GormPasswordRepository) handleError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return ErrUserExists
	}
	return err
}
