// Package contract holds the chat ledger state machine. Every operation
// is a deterministic function of the current state snapshot, the
// operation arguments, and the transaction ordering context: replaying
// the same ordered transaction log on any node produces identical state.
// The contract performs no I/O of its own and keeps no state between
// invocations.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Vigneshd705/ChatApp/internal/domain"
	"github.com/Vigneshd705/ChatApp/internal/keyspace"
)

// Partition tags for the two record kinds. Keeping them distinct means a
// partial-key scan over one never returns the other.
const (
	PartitionMessage = "MSG"
	PartitionUser    = "USER"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Element is a key/value pair yielded by a state range scan.
type Element struct {
	Key   string
	Value []byte
}

// State is the point-in-time view an executing transaction reads from
// and the staging area it writes to. Writes must only become durable
// when the enclosing transaction commits.
type State interface {
	GetState(key string) ([]byte, bool, error)
	PutState(key string, value []byte) error
	ScanPrefix(prefix string) ([]Element, error)
}

// TxContext carries the ordering service's view of the transaction:
// its ID, its position-derived timestamp, and the submitting identity.
type TxContext struct {
	TxID      string
	Timestamp string
	Creator   string
	State     State
}

// ChatContract implements the message and presence operations.
type ChatContract struct{}

// CreateMessage appends one message record to a room's history. The
// timestamp comes from the transaction ordering clock, so concurrent
// submissions still land at distinct, replay-consistent positions.
func (ChatContract) CreateMessage(tx *TxContext, roomID, userID, content string) (*domain.Message, error) {
	if roomID == "" {
		return nil, fmt.Errorf("roomId must not be empty: %w", ErrInvalidArgument)
	}
	if userID == "" {
		return nil, fmt.Errorf("userId must not be empty: %w", ErrInvalidArgument)
	}

	msg := &domain.Message{
		DocType:   domain.DocTypeMessage,
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		Timestamp: tx.Timestamp,
	}

	key, err := keyspace.Encode(PartitionMessage, roomID, msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("roomId %q: %w", roomID, ErrInvalidArgument)
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := tx.State.PutState(key, value); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetChatHistory returns a room's messages in ascending timestamp order.
// An unknown or empty room yields an empty slice, not an error.
func (ChatContract) GetChatHistory(tx *TxContext, roomID string) ([]domain.Message, error) {
	if roomID == "" {
		return nil, fmt.Errorf("roomId must not be empty: %w", ErrInvalidArgument)
	}

	prefix, err := keyspace.Prefix(PartitionMessage, roomID)
	if err != nil {
		return nil, fmt.Errorf("roomId %q: %w", roomID, ErrInvalidArgument)
	}

	elements, err := tx.State.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(elements))
	for _, e := range elements {
		var msg domain.Message
		if err := json.Unmarshal(e.Value, &msg); err != nil {
			return nil, fmt.Errorf("decode message at %q: %w", e.Key, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// JoinUser publishes a presence record for username. The value is the
// raw username; a future revision may store a JSON profile instead.
// Re-joining overwrites silently, so callers must prevent duplicate
// registration upstream.
func (ChatContract) JoinUser(tx *TxContext, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username must not be empty: %w", ErrInvalidArgument)
	}

	key, err := keyspace.Encode(PartitionUser, username)
	if err != nil {
		return "", fmt.Errorf("username %q: %w", username, ErrInvalidArgument)
	}
	if err := tx.State.PutState(key, []byte(username)); err != nil {
		return "", err
	}
	return fmt.Sprintf("User %s joined.", username), nil
}

// GetAllUsers returns every registered username in key order.
func (ChatContract) GetAllUsers(tx *TxContext) ([]string, error) {
	prefix, err := keyspace.Prefix(PartitionUser)
	if err != nil {
		return nil, err
	}

	elements, err := tx.State.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(elements))
	for _, e := range elements {
		users = append(users, string(e.Value))
	}
	return users, nil
}
