package domain

import "context"

// FileStore defines the interface for the primary conversation file backend.
// Write must be atomic: a crash mid-write leaves either the old file or the
// new complete file, never a partial one.
type FileStore interface {
	Write(path string, data []byte) error
	Read(path string) ([]byte, error)
}

// KeyValueStore defines the interface for the secondary key-value backend.
// Get returns (nil, nil) on a missing key; an error means the backend itself
// failed.
type KeyValueStore interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}
