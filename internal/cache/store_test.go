// ABOUTME: Tests for the typed TTL cache.
// ABOUTME: Covers expiry at the TTL boundary, malformed payloads, swallowed failures, and invalidation.
package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type page struct {
	IDs []int64 `json:"ids"`
}

func newTestStore(t *testing.T) (*Store[page], *MemoryBackend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend()
	return NewStore[page](backend, WithClock(clock.Now), WithTTL(2*time.Minute)), backend, clock
}

func TestFreshWithinTTL(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	key := FeedPage("posts", "", 0)

	store.Save(ctx, key, page{IDs: []int64{1, 2, 3, 4, 5}})
	clock.Advance(30 * time.Second)

	got, ok := store.Fresh(ctx, key)
	if !ok {
		t.Fatal("expected a fresh hit 30s after save")
	}
	if len(got.IDs) != 5 {
		t.Errorf("expected 5 cached ids, got %d", len(got.IDs))
	}
}

func TestExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	key := FeedPage("for-you", "", 0)

	store.Save(ctx, key, page{IDs: []int64{1}})

	clock.Advance(2*time.Minute - time.Nanosecond)
	if _, ok := store.Fresh(ctx, key); !ok {
		t.Fatal("expected hit just inside the TTL")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := store.Fresh(ctx, key); ok {
		t.Fatal("expected miss exactly at the TTL")
	}

	clock.Advance(time.Millisecond)
	if _, ok := store.Fresh(ctx, key); ok {
		t.Fatal("expected miss after the TTL")
	}

	// The stale entry is still loadable; only validity changed.
	entry, ok := store.Load(ctx, key)
	if !ok {
		t.Fatal("expected Load to return the stale entry")
	}
	if store.IsValid(entry.Timestamp) {
		t.Error("expected stale entry to be invalid")
	}
}

func TestSaveOverwritesStaleEntry(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	key := FeedPage("for-you", "", 0)

	store.Save(ctx, key, page{IDs: []int64{1}})
	clock.Advance(10 * time.Minute)
	store.Save(ctx, key, page{IDs: []int64{2}})

	got, ok := store.Fresh(ctx, key)
	if !ok || len(got.IDs) != 1 || got.IDs[0] != 2 {
		t.Fatalf("expected overwritten fresh entry, got %+v ok=%v", got, ok)
	}
}

func TestLoadMalformedPayloads(t *testing.T) {
	ctx := context.Background()
	store, backend, _ := newTestStore(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing value", `{"timestamp":"2025-06-01T12:00:00Z"}`},
		{"missing timestamp", `{"value":{"ids":[1]}}`},
		{"wrong value shape", `{"value":"nope","timestamp":"2025-06-01T12:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Singleton("test", tt.name)
			_ = backend.Set(ctx, key.String(), []byte(tt.payload))
			if _, ok := store.Load(ctx, key); ok {
				t.Errorf("expected miss for %s", tt.name)
			}
		})
	}
}

func TestMissingKeyIsMiss(t *testing.T) {
	store, _, _ := newTestStore(t)
	if _, ok := store.Load(context.Background(), KeyCurrentUser); ok {
		t.Error("expected miss for unknown key")
	}
}

type brokenBackend struct {
	NopBackend
}

func (brokenBackend) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func (brokenBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func TestBackendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := NewStore[page](brokenBackend{})

	// Must not panic or surface the failure.
	store.Save(ctx, KeyTopics, page{IDs: []int64{1}})
	if _, ok := store.Fresh(ctx, KeyTopics); ok {
		t.Error("expected miss from a failing backend")
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store, backend, _ := newTestStore(t)
	key := FeedPage("following", "", 1)

	store.Save(ctx, key, page{IDs: []int64{7}})
	store.Invalidate(ctx, key)

	if _, ok := store.Fresh(ctx, key); ok {
		t.Error("expected miss after invalidate")
	}
	if backend.Len() != 0 {
		t.Errorf("expected empty backend, got %d entries", backend.Len())
	}
}

func TestDefaultTTL(t *testing.T) {
	store := NewStore[page](NewMemoryBackend())
	if store.TTL() != DefaultTTL {
		t.Errorf("expected default TTL %s, got %s", DefaultTTL, store.TTL())
	}
	if DefaultTTL != 2*time.Minute {
		t.Errorf("expected DefaultTTL of 2m, got %s", DefaultTTL)
	}
}

func TestKeyStrings(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{FeedPage("for-you", "", 0), "feed:for-you:page:0"},
		{FeedPage("profile-7", "liked", 3), "feed:profile-7:tab:liked:page:3"},
		{Entity("post", 42), "post:42"},
		{KeyCurrentUser, "user:current"},
		{KeyTopics, "topics:all"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key.String() = %q, want %q", got, tt.want)
		}
	}
	if !FeedPage("x", "", 0).IsPaged() || KeyCurrentUser.IsPaged() {
		t.Error("IsPaged mismatch")
	}
}
