// ABOUTME: Typed cache key schema for feed pages, entities, and named singletons.
// ABOUTME: Keys render deterministically so every cached page can be named and invalidated.
package cache

import (
	"strconv"
	"strings"
)

// Key identifies one cache entry. Build keys with FeedPage, Entity, or Singleton.
type Key struct {
	Scope string
	Name  string
	Tab   string
	Page  int
	paged bool
}

// FeedPage keys one page of a feed, optionally scoped to a profile tab.
func FeedPage(feed, tab string, page int) Key {
	return Key{Scope: "feed", Name: feed, Tab: tab, Page: page, paged: true}
}

// Entity keys a single record such as a post or a user.
func Entity(kind string, id int64) Key {
	return Key{Scope: kind, Name: strconv.FormatInt(id, 10)}
}

// Singleton keys a named value such as the current user.
func Singleton(scope, name string) Key {
	return Key{Scope: scope, Name: name}
}

// Well-known singleton keys.
var (
	KeyCurrentUser = Singleton("user", "current")
	KeyTopics      = Singleton("topics", "all")
	KeyRoster      = Singleton("user", "all")
)

// IsPaged reports whether the key addresses a feed page.
func (k Key) IsPaged() bool {
	return k.paged
}

// String renders the key, e.g. "feed:profile-7:tab:liked:page:0" or "user:current".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Scope)
	b.WriteByte(':')
	b.WriteString(k.Name)
	if k.Tab != "" {
		b.WriteString(":tab:")
		b.WriteString(k.Tab)
	}
	if k.paged {
		b.WriteString(":page:")
		b.WriteString(strconv.Itoa(k.Page))
	}
	return b.String()
}
