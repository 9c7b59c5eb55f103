// Package persistence provides the text key/value contract the caching layer
// is built on, with SQLite (local) and libsql (remote) backends.
package persistence

import "context"

// Store is the minimal contract the core requires of its host storage.
// Whether the underlying store encrypts sensitive classes is a concern of the
// host application, not of this layer.
type Store interface {
	// Get returns the stored text for key, with found=false when absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes or overwrites the text stored under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the entry for key; removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// ListKeys returns all keys starting with prefix; empty prefix lists everything.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
