// Package enroll turns a chosen username into a ledger-recognized
// cryptographic identity. One enrollment walks Requested -> Registered
// -> Enrolled -> Stored; any failure before Stored aborts with nothing
// persisted. After Stored the new identity announces itself on the
// ledger; if that last submission fails the credential stays stored and
// the caller gets a distinct "enrolled but not listed" result.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Vigneshd705/ChatApp/internal/ca"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"github.com/Vigneshd705/ChatApp/pkg/log"
)

// nameLock is one per-identity-name mutex with a waiter count, so the
// map entry can be dropped once the last holder releases it.
type nameLock struct {
	mu   sync.Mutex
	refs int
}

var (
	ErrIdentityExists = errors.New("identity already enrolled")
	ErrAdminMissing   = errors.New("administrative identity not provisioned")

	// ErrEnrolledNotListed means the credential was stored but the
	// presence announcement failed. The identity can log in; it is just
	// not yet visible in the user listing. Not rolled back.
	ErrEnrolledNotListed = errors.New("identity enrolled but not listed")
)

// Authority is the issuing authority the workflow registers and enrolls
// against.
type Authority interface {
	Register(ctx context.Context, admin *wallet.Credential, req ca.RegistrationRequest) (string, error)
	Enroll(ctx context.Context, name, secret string) (certPEM, keyPEM []byte, err error)
}

// Ledger is the submit half of the ledger gateway.
type Ledger interface {
	Submit(ctx context.Context, identity, op string, args ...string) (interface{}, error)
}

// Config identifies the organization the workflow enrolls into.
type Config struct {
	AdminID     string
	Affiliation string
	MSPID       string
}

// Enroller runs the issuance workflow.
type Enroller struct {
	ids       *wallet.Wallet
	authority Authority
	ledger    Ledger
	cfg       Config

	// One mutex per identity name, held across the whole state machine
	// so racing enrollments serialize and the loser fails the initial
	// existence check. The wallet's insert-if-absent is the backstop.
	mu    sync.Mutex
	locks map[string]*nameLock
}

// New builds an enroller.
func New(ids *wallet.Wallet, authority Authority, ledger Ledger, cfg Config) *Enroller {
	return &Enroller{
		ids:       ids,
		authority: authority,
		ledger:    ledger,
		cfg:       cfg,
		locks:     make(map[string]*nameLock),
	}
}

// Enroll issues a credential for name and announces its presence.
// Exactly one of two racing calls for the same name wins; the other
// observes ErrIdentityExists.
func (e *Enroller) Enroll(ctx context.Context, name string) (*wallet.Credential, error) {
	l := e.acquire(name)
	defer e.release(name, l)

	return e.run(ctx, name)
}

func (e *Enroller) acquire(name string) *nameLock {
	e.mu.Lock()
	l := e.locks[name]
	if l == nil {
		l = &nameLock{}
		e.locks[name] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return l
}

func (e *Enroller) release(name string, l *nameLock) {
	l.mu.Unlock()

	e.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, name)
	}
	e.mu.Unlock()
}

func (e *Enroller) run(ctx context.Context, name string) (*wallet.Credential, error) {
	l := log.Ctx(ctx)

	// Requested: refuse if a credential already exists.
	exists, err := e.ids.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", name, ErrIdentityExists)
	}

	// Registered: authenticate as the pre-provisioned admin and obtain
	// a one-time enrollment secret.
	admin, err := e.ids.Get(ctx, e.cfg.AdminID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", e.cfg.AdminID, ErrAdminMissing)
		}
		return nil, err
	}

	secret, err := e.authority.Register(ctx, admin, ca.RegistrationRequest{
		ID:          name,
		Affiliation: e.cfg.Affiliation,
		Role:        ca.RoleClient,
	})
	if err != nil {
		return nil, err
	}

	// Enrolled: exchange the secret for a certificate and key pair.
	// An invalid secret is not retried here; the caller restarts from
	// the top once it has confirmed nothing was stored.
	certPEM, keyPEM, err := e.authority.Enroll(ctx, name, secret)
	if err != nil {
		return nil, err
	}

	// Stored: insert-if-absent is the backstop against a racing
	// enrollment that slipped past the existence check.
	cred := &wallet.Credential{
		Owner:       name,
		Certificate: certPEM,
		PrivateKey:  keyPEM,
		MSPID:       e.cfg.MSPID,
		Type:        wallet.CredentialType,
	}
	if err := e.ids.PutIfAbsent(ctx, name, cred); err != nil {
		if errors.Is(err, wallet.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", name, ErrIdentityExists)
		}
		return nil, err
	}

	l.Info().Str(log.FieldUsername, name).Msg("identity enrolled")

	// Publish the presence record as the new identity. Failure here is
	// recoverable: the credential stays stored.
	if _, err := e.ledger.Submit(ctx, name, "JoinUser", name); err != nil {
		l.Warn().Err(err).Str(log.FieldUsername, name).Msg("presence announcement failed")
		return cred, fmt.Errorf("%s: %w", name, ErrEnrolledNotListed)
	}

	return cred, nil
}
