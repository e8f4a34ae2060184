// Package idempotency stores responses of non-idempotent requests under a
// caller supplied key so that retries replay the first outcome instead of
// repeating its side effects.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const HeaderKey = "Idempotency-Key"

var (
	// ErrConflict means the key was already used with a different request body.
	ErrConflict = errors.New("idempotency key reused with a different request")
	// ErrInProgress means another request holding the key has not finished.
	ErrInProgress = errors.New("request with this idempotency key is still in progress")
)

type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
)

type Record struct {
	Key         string    `json:"key"`
	RequestHash string    `json:"request_hash"`
	State       State     `json:"state"`
	StatusCode  int       `json:"status_code,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists idempotency records with a TTL.
type Store interface {
	// Reserve atomically claims key with a pending record. When the key is
	// already taken it returns the existing record and false.
	Reserve(ctx context.Context, rec Record, ttl time.Duration) (*Record, bool, error)
	// Complete replaces the pending record with the final response.
	Complete(ctx context.Context, rec Record, ttl time.Duration) error
	// Release drops a pending reservation after a failed request so the caller
	// may retry with the same key.
	Release(ctx context.Context, key string) error
}

// HashRequest fingerprints a request body.
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Replay inspects an existing record for a new request with requestHash.
func Replay(existing *Record, requestHash string) (*Record, error) {
	if existing.RequestHash != requestHash {
		return nil, ErrConflict
	}
	if existing.State != StateCompleted {
		return nil, ErrInProgress
	}
	return existing, nil
}
