// README: Durable key/value storage for client state (session snapshots, preferences).
package kvstore

import (
	"context"
	"time"
)

// Store is the local durable storage the client state is persisted to.
// A zero ttl means the key does not expire.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key string) (string, bool, error)
}
