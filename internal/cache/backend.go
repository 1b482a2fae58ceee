// ABOUTME: Durable storage contract behind the TTL cache.
// ABOUTME: Backends store opaque payloads by rendered key; expiry is decided by the Store, not here.
package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrMiss is returned by a Backend when no payload exists for a key.
var ErrMiss = errors.New("cache miss")

// Backend persists raw cache payloads.
type Backend interface {
	// Get returns the payload stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores payload under key, replacing any previous value.
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this backend.
	Clear(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// MemoryBackend keeps payloads in process memory. Used when no durable backend
// is configured and by tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), p...), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), payload...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

// Len reports the number of stored payloads.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// NopBackend never stores anything; every read is a miss.
type NopBackend struct{}

func (NopBackend) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (NopBackend) Set(context.Context, string, []byte) error { return nil }
func (NopBackend) Delete(context.Context, string) error { return nil }
func (NopBackend) Clear(context.Context) error { return nil }
func (NopBackend) Close() error { return nil }
