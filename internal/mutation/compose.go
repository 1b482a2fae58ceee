// ABOUTME: Compose holds the draft of a new post.
// ABOUTME: It survives a failed publish untouched and is cleared only after the server confirms.
package mutation

import (
	"strings"

	"github.com/2389-research/futurefeed/internal/api"
)

// Compose is a post draft.
type Compose struct {
	Text     string
	Media    *api.Media
	TopicIDs []int64
}

// Empty reports whether the draft has no text to publish.
func (c *Compose) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Reset clears the draft.
func (c *Compose) Reset() {
	c.Text = ""
	c.Media = nil
	c.TopicIDs = nil
}
