// ABOUTME: Page fetching per feed kind.
// ABOUTME: Server-paged feeds report hasMore from their envelope; list endpoints are paged client-side.
package feed

import (
	"context"
	"fmt"
	"sort"

	"github.com/2389-research/futurefeed/internal/api"
)

// fetchPage returns the raw posts of one page and whether another page exists.
// followed filters the following feed.
func (c *Controller) fetchPage(ctx context.Context, key Key, page int, followed []int64) ([]api.Post, bool, error) {
	switch key.Kind {
	case KindForYou:
		p, err := c.api.Posts(ctx, page, c.pageSize, 0)
		if err != nil {
			return nil, false, err
		}
		return p.Content, page < p.TotalPages-1, nil

	case KindFollowing:
		p, err := c.api.Posts(ctx, page, c.pageSize, 0)
		if err != nil {
			return nil, false, err
		}
		return onlyFollowed(p.Content, followed), page < p.TotalPages-1, nil

	case KindTopic:
		p, err := c.api.TopicPosts(ctx, key.ID, page, c.pageSize)
		if err != nil {
			return nil, false, err
		}
		return p.Content, !p.Last, nil

	case KindBot:
		posts, err := c.api.BotPosts(ctx, key.ID)
		if err != nil {
			return nil, false, err
		}
		return clientPage(posts, page, c.pageSize)

	case KindProfile:
		return c.fetchProfile(ctx, key, page)
	}
	return nil, false, fmt.Errorf("unsupported feed %s", key)
}

func (c *Controller) fetchProfile(ctx context.Context, key Key, page int) ([]api.Post, bool, error) {
	var list func(context.Context, int64) ([]api.Post, error)
	switch key.Tab {
	case TabPosts, "":
		p, err := c.api.Posts(ctx, page, c.pageSize, key.ID)
		if err != nil {
			return nil, false, err
		}
		return p.Content, page < p.TotalPages-1, nil
	case TabReshared:
		list = c.api.ResharedPosts
	case TabLiked:
		list = c.api.LikedPosts
	case TabBookmarked:
		list = c.api.BookmarkedPosts
	case TabCommented:
		list = c.api.CommentedPosts
	default:
		return nil, false, fmt.Errorf("unsupported profile tab %q", key.Tab)
	}
	posts, err := list(ctx, key.ID)
	if err != nil {
		return nil, false, err
	}
	return clientPage(posts, page, c.pageSize)
}

func onlyFollowed(posts []api.Post, ids []int64) []api.Post {
	followed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		followed[id] = true
	}
	out := make([]api.Post, 0, len(posts))
	for _, p := range posts {
		if p.User != nil && followed[p.User.ID] {
			out = append(out, p)
		}
	}
	return out
}

// followedIDs returns the sorted, deduplicated followed ids.
func (c *Controller) followedIDs() []int64 {
	if c.followed == nil {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range c.followed() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// clientPage slices a complete list into one page.
func clientPage(posts []api.Post, page, size int) ([]api.Post, bool, error) {
	start := page * size
	if start >= len(posts) {
		return []api.Post{}, false, nil
	}
	end := start + size
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end], end < len(posts), nil
}
