// Package session bridges local passwords to ledger identities: it
// verifies a password against the off-ledger record, confirms the
// matching wallet credential exists, and issues the short-lived token
// that later requests present for authorization.
package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Vigneshd705/ChatApp/internal/domain"
	"github.com/Vigneshd705/ChatApp/internal/repository"
	"github.com/Vigneshd705/ChatApp/internal/token"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"github.com/Vigneshd705/ChatApp/pkg/log"
)

var (
	ErrUserExists    = errors.New("user already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("incorrect password")

	// ErrCredentialMissing reports drift between the password store and
	// the credential store: the password checks out but no ledger
	// credential exists for the username.
	ErrCredentialMissing = errors.New("ledger credential missing for user")
)

// Bridge implements the session workflow.
type Bridge struct {
	repo       repository.PasswordRepository
	ids        *wallet.Wallet
	tokens     *token.Manager
	bcryptCost int
}

// New builds a bridge. bcryptCost below the library minimum falls back
// to bcrypt.DefaultCost.
func New(repo repository.PasswordRepository, ids *wallet.Wallet, tokens *token.Manager, bcryptCost int) *Bridge {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Bridge{repo: repo, ids: ids, tokens: tokens, bcryptCost: bcryptCost}
}

// Available reports whether no password record exists yet for username.
// The transport shell consults this before starting enrollment.
func (b *Bridge) Available(ctx context.Context, username string) (bool, error) {
	_, err := b.repo.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Register hashes and persists a new password record.
func (b *Bridge) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = b.repo.Create(ctx, &domain.LocalUser{Username: username, PasswordHash: string(hash)})
	if errors.Is(err, repository.ErrUserExists) {
		return fmt.Errorf("%s: %w", username, ErrUserExists)
	}
	return err
}

// Login verifies the password, confirms the wallet credential exists,
// and issues a session token.
func (b *Bridge) Login(ctx context.Context, username, password string) (string, error) {
	record, err := b.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", username, ErrUserNotFound)
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%s: %w", username, ErrWrongPassword)
	}

	exists, err := b.ids.Exists(ctx, username)
	if err != nil {
		return "", err
	}
	if !exists {
		// Password record without a credential: the stores have
		// drifted. Reported distinctly so operators can detect it.
		log.Ctx(ctx).Warn().Str(log.FieldUsername, username).Msg("credential store drift detected")
		return "", fmt.Errorf("%s: %w", username, ErrCredentialMissing)
	}

	return b.tokens.Generate(username)
}

// Authorize verifies a session token and returns the username it was
// issued to. Stateless: there is no revocation, a token stays valid
// until expiry.
func (b *Bridge) Authorize(tokenString string) (string, error) {
	claims, err := b.tokens.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}
