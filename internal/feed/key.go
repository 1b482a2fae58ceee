// ABOUTME: Feed identities: for-you, following, profile tabs, topics, and bots.
// ABOUTME: A Key names one independently paginated collection and renders its cache keys.
package feed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/2389-research/futurefeed/internal/cache"
)

// Kind is the family a feed belongs to.
type Kind string

const (
	KindForYou    Kind = "for-you"
	KindFollowing Kind = "following"
	KindProfile   Kind = "profile"
	KindTopic     Kind = "topic"
	KindBot       Kind = "bot"
)

// Tab selects a profile sub-feed.
type Tab string

const (
	TabPosts      Tab = "posts"
	TabReshared   Tab = "reshared"
	TabLiked      Tab = "liked"
	TabBookmarked Tab = "bookmarked"
	TabCommented  Tab = "commented"
)

// Tabs lists every profile tab.
var Tabs = []Tab{TabPosts, TabReshared, TabLiked, TabBookmarked, TabCommented}

// Key identifies one feed. It is comparable and safe to use as a map key.
type Key struct {
	Kind Kind
	ID   int64
	Tab  Tab
}

// ForYou is the global feed.
func ForYou() Key {
	return Key{Kind: KindForYou}
}

// Following is the global feed restricted to followed authors.
func Following() Key {
	return Key{Kind: KindFollowing}
}

// Topic is the feed of posts tagged with topicID.
func Topic(topicID int64) Key {
	return Key{Kind: KindTopic, ID: topicID}
}

// Bot is the feed of one bot's posts.
func Bot(botID int64) Key {
	return Key{Kind: KindBot, ID: botID}
}

// Profile is one tab of a user's profile. An empty tab means TabPosts.
func Profile(userID int64, tab Tab) Key {
	if tab == "" {
		tab = TabPosts
	}
	return Key{Kind: KindProfile, ID: userID, Tab: tab}
}

// Bookmarked is the collection of posts userID has bookmarked.
func Bookmarked(userID int64) Key {
	return Profile(userID, TabBookmarked)
}

// Reshared is the collection of posts userID has reshared.
func Reshared(userID int64) Key {
	return Profile(userID, TabReshared)
}

// name is the feed part of the cache key, without the tab.
func (k Key) name() string {
	switch k.Kind {
	case KindForYou, KindFollowing:
		return string(k.Kind)
	default:
		return fmt.Sprintf("%s-%d", k.Kind, k.ID)
	}
}

// CacheKey returns the cache key for one page of this feed.
func (k Key) CacheKey(page int) cache.Key {
	return cache.FeedPage(k.name(), string(k.Tab), page)
}

// String renders the key in the form accepted by ParseKey.
func (k Key) String() string {
	switch k.Kind {
	case KindForYou, KindFollowing:
		return string(k.Kind)
	case KindProfile:
		return fmt.Sprintf("profile:%d:%s", k.ID, k.Tab)
	default:
		return fmt.Sprintf("%s:%d", k.Kind, k.ID)
	}
}

// ParseKey parses "for-you", "following", "profile:<id>[:<tab>]",
// "topic:<id>", or "bot:<id>".
func ParseKey(s string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	kind := Kind(strings.ToLower(parts[0]))

	switch kind {
	case KindForYou, KindFollowing:
		if len(parts) != 1 {
			return Key{}, fmt.Errorf("feed %q takes no arguments", kind)
		}
		return Key{Kind: kind}, nil
	case KindProfile, KindTopic, KindBot:
	default:
		return Key{}, fmt.Errorf("unknown feed %q", s)
	}

	if len(parts) < 2 {
		return Key{}, fmt.Errorf("feed %q requires an id", kind)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return Key{}, fmt.Errorf("invalid id in feed %q", s)
	}

	if kind != KindProfile {
		if len(parts) != 2 {
			return Key{}, fmt.Errorf("feed %q takes a single id", kind)
		}
		return Key{Kind: kind, ID: id}, nil
	}

	tab := TabPosts
	if len(parts) == 3 {
		tab = Tab(strings.ToLower(parts[2]))
		if !validTab(tab) {
			return Key{}, fmt.Errorf("unknown profile tab %q", parts[2])
		}
	} else if len(parts) > 3 {
		return Key{}, fmt.Errorf("invalid feed %q", s)
	}
	return Profile(id, tab), nil
}

func validTab(t Tab) bool {
	for _, v := range Tabs {
		if v == t {
			return true
		}
	}
	return false
}
