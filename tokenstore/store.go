// Package tokenstore persists the client's credential pair. Drivers do not enforce expiry;
// they only remember the last pair saved until it is cleared.
package tokenstore

import (
	"context"

	"github.com/jrsteele09/go-inventory-client/token"
)

// StoreType represents the type of token store.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeFile     StoreType = "file"
	StoreTypeRedis    StoreType = "redis"
	StoreTypePostgres StoreType = "postgres"
)

// Fixed storage keys for the two persisted values.
const (
	AccessKey  = "access"
	RefreshKey = "refresh"
)

// Store defines the interface for credential persistence. Every implementation is safe for
// concurrent use: a Load never observes half of a Save.
type Store interface {
	// Save replaces both tokens.
	Save(ctx context.Context, pair token.Pair) error

	// Load returns the stored pair. ok is false when nothing is stored (not an error).
	Load(ctx context.Context) (pair token.Pair, ok bool, err error)

	// SetAccess replaces the access token and leaves the refresh token untouched.
	SetAccess(ctx context.Context, access string) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
