// ABOUTME: Transient error banner shared by feed loads and mutations.
// ABOUTME: Holds at most one message and clears it automatically after a fixed duration.
package notice

import (
	"sync"
	"time"
)

// DefaultDuration is how long a message stays visible.
const DefaultDuration = 3 * time.Second

// Banner holds a single transient message. A new message replaces the old one
// and restarts the clear timer.
type Banner struct {
	mu       sync.Mutex
	msg      string
	gen      uint64
	duration time.Duration
	timer    *time.Timer
	onChange func(string)
}

// New creates a banner that clears after d. Non-positive d uses DefaultDuration.
func New(d time.Duration) *Banner {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Banner{duration: d}
}

// OnChange registers fn to be called with every new message, and with "" on clear.
func (b *Banner) OnChange(fn func(string)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Set shows msg and schedules it to clear.
func (b *Banner) Set(msg string) {
	b.mu.Lock()
	b.msg = msg
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.duration, func() { b.expire(gen) })
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

// expire clears the message only if no newer Set happened since gen.
func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.msg = ""
	b.timer = nil
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn("")
	}
}

// Clear removes the message immediately.
func (b *Banner) Clear() {
	b.mu.Lock()
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	had := b.msg != ""
	b.msg = ""
	fn := b.onChange
	b.mu.Unlock()

	if had && fn != nil {
		fn("")
	}
}

// Current returns the visible message, or "" if none.
func (b *Banner) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg
}
