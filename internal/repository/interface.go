package repository

import (
	"context"
	"errors"

	"github.com/Vigneshd705/ChatApp/internal/domain"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// PasswordRepository stores the off-ledger password records.
type PasswordRepository interface {
	// Create persists a new record; ErrUserExists on duplicate username.
	Create(ctx context.Context, user *domain.LocalUser) error
	// GetByUsername returns the record or ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error)
}
