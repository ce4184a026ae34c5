package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Vigneshd705/ChatApp/internal/domain"
	"github.com/Vigneshd705/ChatApp/internal/repository"
	"github.com/Vigneshd705/ChatApp/internal/token"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"golang.org/x/crypto/bcrypt"
)

// memoryRepo is an in-memory PasswordRepository.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*domain.LocalUser
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*domain.LocalUser)}
}

func (r *memoryRepo) Create(ctx context.Context, user *domain.LocalUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrUserExists
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryRepo) GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func newTestBridge(t *testing.T) (*Bridge, *memoryRepo, *wallet.Wallet) {
	t.Helper()

	ids, err := wallet.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open wallet: %v", err)
	}
	t.Cleanup(func() { ids.Close() })

	tokens, err := token.NewManager(time.Hour, "chat-app")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	repo := newMemoryRepo()
	return New(repo, ids, tokens, bcrypt.MinCost), repo, ids
}

func storeCredential(t *testing.T, ids *wallet.Wallet, owner string) {
	t.Helper()
	err := ids.Put(context.Background(), owner, &wallet.Credential{
		Owner:       owner,
		Certificate: []byte("cert"),
		PrivateKey:  []byte("key"),
		MSPID:       "Org1MSP",
		Type:        wallet.CredentialType,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	b, _, ids := newTestBridge(t)
	ctx := context.Background()

	if err := b.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	storeCredential(t, ids, "alice")

	tok, err := b.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	username, err := b.Authorize(tok)
	if err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want alice", username)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	b, _, _ := newTestBridge(t)
	ctx := context.Background()

	if err := b.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Register(ctx, "alice", "pw2"); !errors.Is(err, ErrUserExists) {
		t.Errorf("err = %v, want ErrUserExists", err)
	}
}

func TestPasswordIsHashed(t *testing.T) {
	b, repo, _ := newTestBridge(t)
	ctx := context.Background()

	if err := b.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatal(err)
	}

	record, _ := repo.GetByUsername(ctx, "alice")
	if record.PasswordHash == "pw1" {
		t.Fatal("password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte("pw1")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestAvailable(t *testing.T) {
	b, _, _ := newTestBridge(t)
	ctx := context.Background()

	free, err := b.Available(ctx, "alice")
	if err != nil || !free {
		t.Errorf("Available = %v, %v; want true, nil", free, err)
	}

	b.Register(ctx, "alice", "pw1")

	free, err = b.Available(ctx, "alice")
	if err != nil || free {
		t.Errorf("Available = %v, %v; want false, nil", free, err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	b, _, _ := newTestBridge(t)

	if _, err := b.Login(context.Background(), "nobody", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	b, _, ids := newTestBridge(t)
	ctx := context.Background()

	b.Register(ctx, "alice", "pw1")
	storeCredential(t, ids, "alice")

	if _, err := b.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("err = %v, want ErrWrongPassword", err)
	}
}

// Correct password but no wallet credential: the stores have drifted,
// reported as a precondition failure rather than an auth failure.
func TestLoginDetectsStoreDrift(t *testing.T) {
	b, _, _ := newTestBridge(t)
	ctx := context.Background()

	b.Register(ctx, "alice", "pw1")

	_, err := b.Login(ctx, "alice", "pw1")
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("err = %v, want ErrCredentialMissing", err)
	}
	if errors.Is(err, ErrWrongPassword) {
		t.Error("drift must not be reported as an auth failure")
	}
}

func TestAuthorizeRejectsExpired(t *testing.T) {
	ids, err := wallet.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ids.Close() })

	tokens, err := token.NewManager(-time.Minute, "chat-app")
	if err != nil {
		t.Fatal(err)
	}
	b := New(newMemoryRepo(), ids, tokens, bcrypt.MinCost)

	tok, err := tokens.Generate("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Authorize(tok); err == nil {
		t.Error("expired token must not authorize")
	}
}
