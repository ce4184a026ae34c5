package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"sync"
	"testing"
)

func openTestWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func testCredential(t *testing.T, owner string) *Credential {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return &Credential{
		Owner:       owner,
		Certificate: []byte("-----BEGIN CERTIFICATE-----\nZmFrZQ==\n-----END CERTIFICATE-----\n"),
		PrivateKey:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
		MSPID:       "Org1MSP",
		Type:        CredentialType,
	}
}

func TestPutGet(t *testing.T) {
	w := openTestWallet(t)
	ctx := context.Background()

	cred := testCredential(t, "alice")
	if err := w.Put(ctx, "alice", cred); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := w.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Owner != "alice" || got.MSPID != "Org1MSP" || got.Type != CredentialType {
		t.Errorf("unexpected credential: %+v", got)
	}
	if string(got.PrivateKey) != string(cred.PrivateKey) {
		t.Error("private key did not round-trip")
	}
}

func TestGetAbsent(t *testing.T) {
	w := openTestWallet(t)

	if _, err := w.Get(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	w := openTestWallet(t)
	ctx := context.Background()

	first := testCredential(t, "alice")
	second := testCredential(t, "alice")
	w.Put(ctx, "alice", first)
	if err := w.Put(ctx, "alice", second); err != nil {
		t.Fatalf("re-enrollment overwrite failed: %v", err)
	}

	got, _ := w.Get(ctx, "alice")
	if string(got.PrivateKey) != string(second.PrivateKey) {
		t.Error("last write did not win")
	}
}

func TestPutIfAbsent(t *testing.T) {
	w := openTestWallet(t)
	ctx := context.Background()

	if err := w.PutIfAbsent(ctx, "alice", testCredential(t, "alice")); err != nil {
		t.Fatalf("first PutIfAbsent error: %v", err)
	}
	if err := w.PutIfAbsent(ctx, "alice", testCredential(t, "alice")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second PutIfAbsent: err = %v, want ErrAlreadyExists", err)
	}
}

// Many concurrent conditional inserts for one name: exactly one winner.
func TestPutIfAbsentConcurrent(t *testing.T) {
	w := openTestWallet(t)
	ctx := context.Background()

	const attempts = 16
	cred := testCredential(t, "alice")
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = w.PutIfAbsent(ctx, "alice", cred)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadyExists):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("got %d winners, want exactly 1", winners)
	}
}

func TestSigner(t *testing.T) {
	cred := testCredential(t, "alice")
	signer, err := cred.Signer()
	if err != nil {
		t.Fatalf("Signer error: %v", err)
	}
	if signer.Public() == nil {
		t.Error("signer has no public key")
	}

	bad := &Credential{Owner: "mallory", PrivateKey: []byte("not a key")}
	if _, err := bad.Signer(); !errors.Is(err, ErrUnusableKey) {
		t.Errorf("err = %v, want ErrUnusableKey", err)
	}
}
