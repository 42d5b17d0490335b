package dedup

import (
	"context"
	"time"
)

// Store is the shared key-value capability the guard runs against.
// Implementations must be safe for concurrent use across goroutines and, for
// shared backends, across processes.
type Store interface {
	// SetNX stores key with the given TTL only if it is absent, as one atomic
	// operation. It reports whether this call created the key.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether key is currently present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Del removes key. Removing a missing key is not an error.
	Del(ctx context.Context, key string) error
}
