// Package gateway adapts the chat contract to the host ledger contract:
// "submit a named operation with arguments, durably ordered" and
// "evaluate a named read-only query". Submissions are serialized into a
// total order, stamped by a monotonic ordering clock, and committed
// atomically; a failed operation leaves no trace. Every call is made on
// behalf of a wallet identity, and submissions are signed with that
// identity's private key.
package gateway

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Vigneshd705/ChatApp/internal/contract"
	"github.com/Vigneshd705/ChatApp/internal/keyspace"
	"github.com/Vigneshd705/ChatApp/internal/statedb"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"github.com/Vigneshd705/ChatApp/pkg/log"
)

var (
	ErrIdentityNotFound   = errors.New("ledger identity not found in wallet")
	ErrUnusableCredential = errors.New("credential cannot sign")
	ErrUnknownOperation   = errors.New("unknown ledger operation")
	ErrWrongArgumentCount = errors.New("wrong argument count")
)

// PartitionTx holds the ordered submission log, one record per
// committed transaction.
const PartitionTx = "TX"

// tsFormat is fixed width with nanosecond precision, so the byte order
// of encoded timestamps equals their chronological order.
const tsFormat = "2006-01-02T15:04:05.000000000Z"

// TxRecord is the bookkeeping entry committed alongside each submitted
// transaction.
type TxRecord struct {
	TxID      string `json:"txId"`
	Operation string `json:"operation"`
	Creator   string `json:"creator"`
	Timestamp string `json:"timestamp"`
	Signature []byte `json:"signature"`
}

// Gateway is the single-node embedded ledger.
type Gateway struct {
	chat  contract.ChatContract
	store *statedb.Store
	ids   *wallet.Wallet

	// Serializes submissions and guards the ordering clock.
	mu   sync.Mutex
	last time.Time
}

// New builds a gateway over an open state store and wallet.
func New(store *statedb.Store, ids *wallet.Wallet) *Gateway {
	return &Gateway{store: store, ids: ids}
}

// Submit executes a named mutating operation as identity, in total
// submission order, and commits its writes atomically.
func (g *Gateway) Submit(ctx context.Context, identity, op string, args ...string) (interface{}, error) {
	cred, err := g.credential(ctx, identity)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	batch := g.store.NewBatch()
	tx := &contract.TxContext{
		TxID:      uuid.New().String(),
		Timestamp: g.nextTimestamp(),
		Creator:   identity,
		State:     &txState{store: g.store, batch: batch},
	}

	var result interface{}
	switch op {
	case "CreateMessage":
		if len(args) != 3 {
			return nil, fmt.Errorf("%s: %w", op, ErrWrongArgumentCount)
		}
		result, err = g.chat.CreateMessage(tx, args[0], args[1], args[2])
	case "JoinUser":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: %w", op, ErrWrongArgumentCount)
		}
		result, err = g.chat.JoinUser(tx, args[0])
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownOperation)
	}
	if err != nil {
		// The staged batch is discarded: rejected operations write nothing.
		return nil, err
	}

	if err := g.appendTxRecord(batch, tx, cred, op, args); err != nil {
		return nil, err
	}
	if err := g.store.Write(batch); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().
		Str(log.FieldTxID, tx.TxID).
		Str(log.FieldOperation, op).
		Str(log.FieldUsername, identity).
		Msg("transaction committed")

	return result, nil
}

// Evaluate executes a named read-only query as identity against the
// committed snapshot. It never blocks submitters.
func (g *Gateway) Evaluate(ctx context.Context, identity, op string, args ...string) (interface{}, error) {
	found, err := g.ids.Exists(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", identity, ErrIdentityNotFound)
	}

	tx := &contract.TxContext{
		TxID:    uuid.New().String(),
		Creator: identity,
		State:   &evalState{store: g.store},
	}

	switch op {
	case "GetChatHistory":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: %w", op, ErrWrongArgumentCount)
		}
		return g.chat.GetChatHistory(tx, args[0])
	case "GetAllUsers":
		if len(args) != 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrWrongArgumentCount)
		}
		return g.chat.GetAllUsers(tx)
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownOperation)
	}
}

// credential loads the submitter's credential and verifies its key
// material is usable for signing.
func (g *Gateway) credential(ctx context.Context, identity string) (*wallet.Credential, error) {
	cred, err := g.ids.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", identity, ErrIdentityNotFound)
		}
		return nil, err
	}
	return cred, nil
}

// nextTimestamp advances the ordering clock. Strictly monotonic: two
// transactions never share a timestamp, whatever the wall clock does.
// Callers hold g.mu.
func (g *Gateway) nextTimestamp() string {
	now := time.Now().UTC()
	if !now.After(g.last) {
		now = g.last.Add(time.Nanosecond)
	}
	g.last = now
	return now.Format(tsFormat)
}

// appendTxRecord signs the submission with the creator's key and stages
// a TX partition entry in the same batch as the operation's writes.
func (g *Gateway) appendTxRecord(batch *leveldb.Batch, tx *contract.TxContext, cred *wallet.Credential, op string, args []string) error {
	payload := sha256.Sum256([]byte(tx.TxID + "\x00" + op + "\x00" + strings.Join(args, "\x00")))
	sig, err := sign(cred, payload[:])
	if err != nil {
		return err
	}

	record := TxRecord{
		TxID:      tx.TxID,
		Operation: op,
		Creator:   tx.Creator,
		Timestamp: tx.Timestamp,
		Signature: sig,
	}
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key, err := keyspace.Encode(PartitionTx, tx.Timestamp)
	if err != nil {
		return err
	}
	batch.Put([]byte(key), value)
	return nil
}

// sign produces a signature over digest using the credential's private
// key. This is the one sanctioned read of stored key material outside
// the enrollment path.
func sign(cred *wallet.Credential, digest []byte) ([]byte, error) {
	signer, err := cred.Signer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnusableCredential, err)
	}
	sig, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", cred.Owner, err)
	}
	return sig, nil
}

// txState stages writes in a batch while reads see committed state.
type txState struct {
	store *statedb.Store
	batch *leveldb.Batch
}

func (s *txState) GetState(key string) ([]byte, bool, error) {
	return s.store.Get(key)
}

func (s *txState) PutState(key string, value []byte) error {
	s.batch.Put([]byte(key), value)
	return nil
}

func (s *txState) ScanPrefix(prefix string) ([]contract.Element, error) {
	return scan(s.store, prefix)
}

// evalState is the read-only view used by Evaluate.
type evalState struct {
	store *statedb.Store
}

func (s *evalState) GetState(key string) ([]byte, bool, error) {
	return s.store.Get(key)
}

func (s *evalState) PutState(string, []byte) error {
	return errors.New("gateway: write attempted inside read-only evaluation")
}

func (s *evalState) ScanPrefix(prefix string) ([]contract.Element, error) {
	return scan(s.store, prefix)
}

func scan(store *statedb.Store, prefix string) ([]contract.Element, error) {
	elements, err := store.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]contract.Element, len(elements))
	for i, e := range elements {
		out[i] = contract.Element{Key: e.Key, Value: e.Value}
	}
	return out, nil
}
