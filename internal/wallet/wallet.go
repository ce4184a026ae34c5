// Package wallet is the durable credential store. Each identity owns at
// most one credential, keyed by owner name; re-enrollment overwrites
// destructively. Private key material stored here is only ever read by
// the components that sign on the owner's behalf.
package wallet

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"

	"github.com/Vigneshd705/ChatApp/internal/statedb"
)

var (
	ErrNotFound      = errors.New("credential not found")
	ErrAlreadyExists = errors.New("credential already exists")
	ErrUnusableKey   = errors.New("credential key material unusable")
)

// CredentialType is the only credential kind currently issued.
const CredentialType = "X.509"

// Credential is a signed certificate plus the private key that proves
// ownership, tagged with the issuing organization's membership service
// identifier.
type Credential struct {
	Owner       string `json:"owner"`
	Certificate []byte `json:"certificate"`
	PrivateKey  []byte `json:"privateKey"`
	MSPID       string `json:"mspId"`
	Type        string `json:"type"`
}

// Wallet stores credentials in an embedded key-value database. The
// mutex makes Get-then-Put in PutIfAbsent atomic, closing the double
// enrollment race at the store level.
type Wallet struct {
	mu    sync.Mutex
	store *statedb.Store
}

// Open opens (creating if necessary) a wallet at path.
func Open(path string) (*Wallet, error) {
	store, err := statedb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	return &Wallet{store: store}, nil
}

// NewWithStore wraps an already open store. Used by tests and by
// deployments sharing one database file.
func NewWithStore(store *statedb.Store) *Wallet {
	return &Wallet{store: store}
}

// Close releases the backing store.
func (w *Wallet) Close() error {
	return w.store.Close()
}

// Get returns the credential owned by owner, or ErrNotFound.
func (w *Wallet) Get(ctx context.Context, owner string) (*Credential, error) {
	value, found, err := w.store.Get(walletKey(owner))
	if err != nil {
		return nil, fmt.Errorf("wallet: get %s: %w", owner, err)
	}
	if !found {
		return nil, fmt.Errorf("wallet: %s: %w", owner, ErrNotFound)
	}

	var cred Credential
	if err := json.Unmarshal(value, &cred); err != nil {
		return nil, fmt.Errorf("wallet: decode %s: %w", owner, err)
	}
	return &cred, nil
}

// Exists reports whether a credential is stored for owner.
func (w *Wallet) Exists(ctx context.Context, owner string) (bool, error) {
	_, found, err := w.store.Get(walletKey(owner))
	if err != nil {
		return false, fmt.Errorf("wallet: exists %s: %w", owner, err)
	}
	return found, nil
}

// Put stores a credential for owner, overwriting any previous one.
// Last write wins; there is no versioning.
func (w *Wallet) Put(ctx context.Context, owner string, cred *Credential) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(owner, cred)
}

// PutIfAbsent stores a credential only when none exists for owner yet.
// Returns ErrAlreadyExists otherwise.
func (w *Wallet) PutIfAbsent(ctx context.Context, owner string, cred *Credential) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, found, err := w.store.Get(walletKey(owner))
	if err != nil {
		return fmt.Errorf("wallet: put %s: %w", owner, err)
	}
	if found {
		return fmt.Errorf("wallet: %s: %w", owner, ErrAlreadyExists)
	}
	return w.write(owner, cred)
}

func (w *Wallet) write(owner string, cred *Credential) error {
	value, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("wallet: encode %s: %w", owner, err)
	}
	if err := w.store.Put(walletKey(owner), value); err != nil {
		return fmt.Errorf("wallet: put %s: %w", owner, err)
	}
	return nil
}

// Signer parses the credential's PEM private key for signing. Only the
// components that sign on the owner's behalf may call this.
func (c *Credential) Signer() (crypto.Signer, error) {
	block, _ := pem.Decode(c.PrivateKey)
	if block == nil {
		return nil, fmt.Errorf("%s: %w", c.Owner, ErrUnusableKey)
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if key, ok := parsed.(*ecdsa.PrivateKey); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%s: %w", c.Owner, ErrUnusableKey)
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%s: %w", c.Owner, ErrUnusableKey)
}

// walletKey namespaces credentials so a wallet can share a database
// with other record kinds.
func walletKey(owner string) string {
	return "ID\x00" + owner
}
