package ledger

import "context"

// Store is a key-value store with optimistic concurrency. Versions are opaque
// tokens; an empty expected version means the key must not exist yet.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, string, error)
	// Put returns ErrVersionMismatch when expected does not match the stored version.
	Put(ctx context.Context, key string, value []byte, expected string) (string, error)
	// Keys returns every key, sorted.
	Keys(ctx context.Context) ([]string, error)
}
