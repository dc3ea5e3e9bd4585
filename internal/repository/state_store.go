package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state: revoked refresh-token JTIs
// and other short-lived records that must not live in postgres.
// Implementations: Redis (production) or in-memory (single instance / tests).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil with no error when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
