// ABOUTME: Tests for the transient error banner.
// ABOUTME: Covers replacement, automatic clearing, and the change callback.
package notice

import (
	"sync"
	"testing"
	"time"
)

func TestSetAndCurrent(t *testing.T) {
	b := New(time.Hour)
	if b.Current() != "" {
		t.Fatal("expected empty banner")
	}
	b.Set("Failed to load posts")
	if b.Current() != "Failed to load posts" {
		t.Errorf("Current() = %q", b.Current())
	}
	b.Set("Failed to like post")
	if b.Current() != "Failed to like post" {
		t.Errorf("expected replacement, got %q", b.Current())
	}
	b.Clear()
	if b.Current() != "" {
		t.Errorf("expected cleared banner, got %q", b.Current())
	}
}

func TestAutoClear(t *testing.T) {
	b := New(20 * time.Millisecond)
	b.Set("boom")

	deadline := time.Now().Add(2 * time.Second)
	for b.Current() != "" {
		if time.Now().After(deadline) {
			t.Fatal("banner never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewerMessageRestartsTimer(t *testing.T) {
	b := New(50 * time.Millisecond)
	b.Set("first")
	time.Sleep(30 * time.Millisecond)
	b.Set("second")
	time.Sleep(30 * time.Millisecond)

	// The first timer would have fired by now; the second has not.
	if b.Current() != "second" {
		t.Errorf("expected 'second' to still be visible, got %q", b.Current())
	}
}

func TestOnChange(t *testing.T) {
	b := New(10 * time.Millisecond)

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	b.OnChange(func(msg string) {
		mu.Lock()
		seen = append(seen, msg)
		n := len(seen)
		mu.Unlock()
		if n == 2 {
			close(done)
		}
	})

	b.Set("oops")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clear callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != "oops" || seen[1] != "" {
		t.Errorf("unexpected callback sequence: %q", seen)
	}
}

func TestDefaultDuration(t *testing.T) {
	if New(0).duration != DefaultDuration {
		t.Error("expected DefaultDuration for non-positive input")
	}
}
