// ABOUTME: Placeholder identifiers for records created locally before the server assigns one.
// ABOUTME: Ids are strictly decreasing negatives so they never collide with real positive ids.
package tempid

import "sync/atomic"

// Allocator hands out -1, -2, -3 ... for the lifetime of the process.
type Allocator struct {
	last atomic.Int64
}

// New returns an allocator whose first id is -1.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the next unused placeholder id.
func (a *Allocator) Next() int64 {
	return a.last.Add(-1)
}

// IsPending reports whether id is a placeholder rather than a server id.
func IsPending(id int64) bool {
	return id < 0
}
