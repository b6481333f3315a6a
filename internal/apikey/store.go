// Package apikey resolves API keys to tenant ids. Every request enters the
// system with a key; the resolved tenant id is the only tenant the request
// can touch.
package apikey

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when an API key is unknown or revoked.
var ErrKeyNotFound = errors.New("api key not found")

// Store resolves API keys to tenant ids.
type Store interface {
	// Resolve returns the tenant id owning the key, or ErrKeyNotFound.
	Resolve(ctx context.Context, key string) (int64, error)
	// Put registers or replaces a key for a tenant.
	Put(ctx context.Context, key string, tenantID int64) error
	// Revoke removes a key.
	Revoke(ctx context.Context, key string) error
	// Ping checks connectivity to the underlying store.
	Ping(ctx context.Context) error
	Close() error
}
