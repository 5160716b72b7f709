// Package memory provides in-memory implementations of the storage ports.
// They exist so tests can exercise the conversation store without touching
// a real filesystem or Redis instance.
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrWriteFailed is returned by stores configured to simulate backend
// failures.
var ErrWriteFailed = errors.New("simulated write failure")

// FileStore is an in-memory FileStore keyed by path.
type FileStore struct {
	mu    sync.Mutex
	files map[string][]byte

	// FailWrites makes every Write return ErrWriteFailed when set.
	FailWrites bool
}

// NewFileStore creates an empty in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string][]byte)}
}

func (s *FileStore) Write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrWriteFailed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.files[path] = buf
	return nil
}

func (s *FileStore) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("file not found: " + path)
	}
	return data, nil
}

// KeyValueStore is an in-memory KeyValueStore.
type KeyValueStore struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailWrites makes every Set return ErrWriteFailed when set.
	FailWrites bool
}

// NewKeyValueStore creates an empty in-memory key-value store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string][]byte)}
}

func (s *KeyValueStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrWriteFailed
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.values[key] = buf
	return nil
}

func (s *KeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (s *KeyValueStore) Close() error {
	return nil
}
