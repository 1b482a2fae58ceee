// ABOUTME: Typed TTL cache over a durable Backend.
// ABOUTME: Entries carry a capture timestamp; reads older than the TTL behave exactly like misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/logging"
)

// DefaultTTL is how long a cached value stays valid.
const DefaultTTL = 2 * time.Minute

// Entry is a cached value with the time it was captured.
type Entry[T any] struct {
	Value     T
	Timestamp time.Time
}

// envelope is the stored JSON shape. Pointers let Load tell an absent field from a zero one.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp *time.Time      `json:"timestamp"`
}

// Option configures a Store.
type Option func(*settings)

type settings struct {
	ttl time.Duration
	now func() time.Time
	log *zap.Logger
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source used for timestamps and validity checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// Store is a typed view over a Backend.
type Store[T any] struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewStore creates a typed cache over backend.
func NewStore[T any](backend Backend, opts ...Option) *Store[T] {
	s := settings{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logging.WithComponent("cache")
	}
	if backend == nil {
		backend = NopBackend{}
	}
	return &Store[T]{backend: backend, ttl: s.ttl, now: s.now, log: s.log}
}

// TTL returns the validity window.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Save stores value under key stamped with the current time. Failures are logged, never returned.
func (s *Store[T]) Save(ctx context.Context, key Key, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache save: marshal failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	ts := s.now()
	payload, err := json.Marshal(envelope{Value: raw, Timestamp: &ts})
	if err != nil {
		s.log.Warn("cache save: envelope failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := s.backend.Set(ctx, key.String(), payload); err != nil {
		s.log.Warn("cache save: backend failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// Load returns the stored entry regardless of age. Missing, unparseable, or
// malformed payloads report false.
func (s *Store[T]) Load(ctx context.Context, key Key) (*Entry[T], bool) {
	payload, err := s.backend.Get(ctx, key.String())
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.log.Warn("cache load: backend failed", zap.String("key", key.String()), zap.Error(err))
		}
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.log.Warn("cache load: unparseable payload", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if len(env.Value) == 0 || env.Timestamp == nil {
		s.log.Warn("cache load: malformed payload", zap.String("key", key.String()))
		return nil, false
	}

	var value T
	if err := json.Unmarshal(env.Value, &value); err != nil {
		s.log.Warn("cache load: value mismatch", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	return &Entry[T]{Value: value, Timestamp: *env.Timestamp}, true
}

// IsValid reports whether a value captured at ts is still inside the TTL.
func (s *Store[T]) IsValid(ts time.Time) bool {
	return s.now().Sub(ts) < s.ttl
}

// Fresh returns the value under key only if it exists and has not expired.
func (s *Store[T]) Fresh(ctx context.Context, key Key) (T, bool) {
	entry, ok := s.Load(ctx, key)
	if !ok || !s.IsValid(entry.Timestamp) {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// Invalidate removes key so the next read is a miss.
func (s *Store[T]) Invalidate(ctx context.Context, key Key) {
	if err := s.backend.Delete(ctx, key.String()); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("key", key.String()), zap.Error(err))
	}
}
