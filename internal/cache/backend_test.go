// ABOUTME: Tests for the durable cache backends.
// ABOUTME: Runs the same contract against file and SQLite backends; checks Redis URL handling.
package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/2389-research/futurefeed/internal/config"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Get(ctx, "feed:for-you:page:0"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss on empty backend, got %v", err)
	}

	if err := b.Set(ctx, "feed:for-you:page:0", []byte(`one`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := b.Set(ctx, "feed:for-you:page:0", []byte(`two`)); err != nil {
		t.Fatalf("Set overwrite error: %v", err)
	}
	if err := b.Set(ctx, "user:current", []byte(`me`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := b.Get(ctx, "feed:for-you:page:0")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("expected overwritten payload 'two', got %q", string(got))
	}

	if err := b.Delete(ctx, "feed:for-you:page:0"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := b.Delete(ctx, "feed:for-you:page:0"); err != nil {
		t.Fatalf("Delete of missing key should not error: %v", err)
	}
	if _, err := b.Get(ctx, "feed:for-you:page:0"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after delete, got %v", err)
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := b.Get(ctx, "user:current"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after clear, got %v", err)
	}
}

func TestMemoryBackendContract(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackendContract(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileBackend error: %v", err)
	}
	defer func() { _ = b.Close() }()
	exerciseBackend(t, b)
}

func TestFileBackendRequiresDir(t *testing.T) {
	if _, err := NewFileBackend(""); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestSQLiteBackendContract(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend error: %v", err)
	}
	defer func() { _ = b.Close() }()
	exerciseBackend(t, b)
}

func TestSQLiteBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("NewSQLiteBackend error: %v", err)
	}
	if err := b.Set(ctx, "user:current", []byte(`me`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	_ = b.Close()

	reopened, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "user:current")
	if err != nil {
		t.Fatalf("Get after reopen error: %v", err)
	}
	if string(got) != "me" {
		t.Errorf("expected 'me', got %q", string(got))
	}
}

func TestRedisBackendBadURL(t *testing.T) {
	if _, err := NewRedisBackend(context.Background(), "not a url"); err == nil {
		t.Error("expected error for unparseable Redis URL")
	}
}

func TestRedisNamespaceKey(t *testing.T) {
	r := &RedisBackend{}
	if got := r.namespaceKey("feed:for-you:page:0"); got != "futurefeed:feed:for-you:page:0" {
		t.Errorf("namespaceKey() = %q", got)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"default file", config.Config{Cache: config.CacheConfig{Path: filepath.Join(dir, "files")}}, false},
		{"sqlite", config.Config{Cache: config.CacheConfig{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}}, false},
		{"none", config.Config{Cache: config.CacheConfig{Backend: "none"}}, false},
		{"memory", config.Config{Cache: config.CacheConfig{Backend: "memory"}}, false},
		{"redis without url", config.Config{Cache: config.CacheConfig{Backend: "redis"}}, true},
		{"unknown", config.Config{Cache: config.CacheConfig{Backend: "etcd"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			b, err := OpenBackend(ctx, &cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenBackend error: %v", err)
			}
			_ = b.Close()
		})
	}
}
