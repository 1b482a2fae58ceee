// ABOUTME: Tests for the placeholder id allocator.
// ABOUTME: Covers ordering, uniqueness under concurrency, and sign checks.
package tempid

import (
	"sync"
	"testing"
)

func TestNextStartsBelowZeroAndDecreases(t *testing.T) {
	a := New()
	first := a.Next()
	if first != -1 {
		t.Fatalf("expected first id -1, got %d", first)
	}
	prev := first
	for i := 0; i < 5; i++ {
		next := a.Next()
		if next >= prev {
			t.Fatalf("expected strictly decreasing ids, got %d after %d", next, prev)
		}
		prev = next
	}
}

func TestNextUniqueAcrossGoroutines(t *testing.T) {
	a := New()
	const workers, per = 8, 200

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := a.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Errorf("expected %d ids, got %d", workers*per, len(seen))
	}
}

func TestIsPending(t *testing.T) {
	if !IsPending(-3) {
		t.Error("negative ids are pending")
	}
	if IsPending(0) || IsPending(107) {
		t.Error("zero and positive ids are not pending")
	}
}
