package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity data for a validated API key. UserID is the
// account the key acts on behalf of; every cart and order operation is
// scoped to it.
type APIKeyInfo struct {
	ID      string
	UserID  int64
	KeyHash string
	Name    string
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	// FindByHash returns the key matching the hash, or ErrKeyNotFound when
	// no active key (of an active user) matches.
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
