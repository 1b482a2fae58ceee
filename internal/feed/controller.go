// ABOUTME: Pagination and merge controller for every feed.
// ABOUTME: Serves fresh cached pages without network I/O, otherwise fetches, decorates, merges, and caches.
package feed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/cache"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/notice"
)

// DefaultPageSize is the number of posts per page.
const DefaultPageSize = 10

// MsgLoadFailed is shown on the banner when a page cannot be fetched.
const MsgLoadFailed = "Failed to load posts. Please try again."

// CachedPage is the decorated page stored in the TTL cache. Following pages
// record the followed ids they were filtered with.
type CachedPage struct {
	Items    []*models.FeedItem `json:"items"`
	HasMore  bool               `json:"hasMore"`
	Followed []int64            `json:"followed,omitempty"`
}

// Options configures a Controller.
type Options struct {
	PageSize    int
	Concurrency int
	// Followed returns the ids the signed-in user follows; used by the following feed.
	Followed     func() []int64
	CacheOptions []cache.Option
}

// Controller loads feed pages into a Store.
type Controller struct {
	api      API
	store    *Store
	dir      *Directory
	enricher *Enricher
	pages    *cache.Store[CachedPage]
	banner   *notice.Banner
	pageSize int
	followed func() []int64
	log      *zap.Logger

	mu       sync.Mutex
	inflight map[Key]bool
}

// NewController wires a controller. banner may be nil.
func NewController(client API, store *Store, dir *Directory, backend cache.Backend, banner *notice.Banner, opts Options) *Controller {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if banner == nil {
		banner = notice.New(notice.DefaultDuration)
	}
	return &Controller{
		api:      client,
		store:    store,
		dir:      dir,
		enricher: NewEnricher(client, opts.Concurrency),
		pages:    cache.NewStore[CachedPage](backend, opts.CacheOptions...),
		banner:   banner,
		pageSize: size,
		followed: opts.Followed,
		log:      logging.WithComponent("feed"),
		inflight: make(map[Key]bool),
	}
}

// Store returns the store the controller writes to.
func (c *Controller) Store() *Store {
	return c.store
}

// Directory returns the user and topic directory.
func (c *Controller) Directory() *Directory {
	return c.dir
}

// Banner returns the transient error banner.
func (c *Controller) Banner() *notice.Banner {
	return c.banner
}

// PageSize returns the number of posts per page.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Load loads page of key. Without appendPage a fresh cache entry is served
// with no network I/O and the feed is replaced; with appendPage the page is
// always fetched and merged. On failure the banner is set and the feed is
// left untouched.
func (c *Controller) Load(ctx context.Context, key Key, page int, appendPage bool) error {
	log := c.log.With(zap.String("feed", key.String()), zap.Int("page", page))

	var followed []int64
	if key.Kind == KindFollowing {
		followed = c.followedIDs()
	}

	if !appendPage {
		if cp, ok := c.pages.Fresh(ctx, key.CacheKey(page)); ok && sameIDs(cp.Followed, followed) {
			c.store.Replace(key, cp.Items, page, cp.HasMore)
			log.Debug("served from cache", zap.Int("items", len(cp.Items)))
			return nil
		}
	}

	var (
		posts   []api.Post
		hasMore bool
		pageErr error
		aux     Aux
	)
	me, signedIn := c.dir.Me()

	var g errgroup.Group
	g.Go(func() error {
		posts, hasMore, pageErr = c.fetchPage(ctx, key, page, followed)
		return nil
	})
	g.Go(func() error {
		aux.Reshared = c.resharedSet(ctx)
		return nil
	})
	g.Go(func() error {
		if signedIn {
			aux.Bookmarked = c.bookmarkedSet(ctx, me.ID)
		}
		return nil
	})
	g.Go(func() error {
		roster, err := c.dir.Roster(ctx)
		if err != nil {
			log.Warn("roster unavailable; comment authors will be unknown", zap.Error(err))
		}
		aux.Roster = roster
		return nil
	})
	g.Go(func() error {
		aux.Topics = c.dir.TopicNames(ctx)
		return nil
	})
	_ = g.Wait()

	if pageErr != nil {
		c.banner.Set(MsgLoadFailed)
		log.Warn("page fetch failed", zap.Error(pageErr))
		return fmt.Errorf("failed to load %s page %d: %w", key, page, pageErr)
	}

	items := make([]*models.FeedItem, 0, len(posts))
	for i := range posts {
		item, ok := posts[i].Item()
		if !ok {
			log.Info("dropping post with no author", zap.Int64("post_id", posts[i].ID))
			continue
		}
		items = append(items, item)
	}
	c.enricher.Decorate(ctx, items, aux)

	if appendPage {
		c.store.Merge(key, items, page, hasMore)
	} else {
		c.store.Replace(key, items, page, hasMore)
	}
	c.pages.Save(ctx, key.CacheKey(page), CachedPage{Items: items, HasMore: hasMore, Followed: followed})
	log.Debug("page loaded", zap.Int("items", len(items)), zap.Bool("has_more", hasMore))
	return nil
}

// LoadMore appends the next page of key if one exists. It reports whether a page was loaded.
func (c *Controller) LoadMore(ctx context.Context, key Key) (bool, error) {
	st := c.store.State(key)
	if !st.Loaded {
		return true, c.Load(ctx, key, 0, false)
	}
	if !st.HasMore {
		return false, nil
	}
	if err := c.Load(ctx, key, st.Page+1, true); err != nil {
		return false, err
	}
	return true, nil
}

// ItemVisible advances pagination when id, the last item of key, becomes
// visible and another page exists. Concurrent triggers for the same feed
// coalesce into one load; the losers report false.
func (c *Controller) ItemVisible(ctx context.Context, key Key, id int64) (bool, error) {
	st := c.store.State(key)
	if !st.Loaded || !st.HasMore {
		return false, nil
	}
	ids := c.store.IDs(key)
	if len(ids) == 0 || ids[len(ids)-1] != id {
		return false, nil
	}

	c.mu.Lock()
	if c.inflight[key] {
		c.mu.Unlock()
		return false, nil
	}
	c.inflight[key] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	if err := c.Load(ctx, key, st.Page+1, true); err != nil {
		return false, err
	}
	return true, nil
}

// Find returns the record for id, loading pages of key until it appears or
// maxPages pages have been examined.
func (c *Controller) Find(ctx context.Context, key Key, id int64, maxPages int) (*models.FeedItem, error) {
	if item, ok := c.store.Item(id); ok {
		return item, nil
	}
	for i := 0; i < maxPages; i++ {
		more, err := c.LoadMore(ctx, key)
		if err != nil {
			return nil, err
		}
		if item, ok := c.store.Item(id); ok {
			return item, nil
		}
		if !more {
			break
		}
	}
	return nil, api.NewError(api.KindNotFound, "find post", fmt.Sprintf("post %d is not in feed %s", id, key))
}

// Reconfirm re-reads like state and count for id and overwrites the record.
func (c *Controller) Reconfirm(ctx context.Context, id int64) error {
	var liked bool
	var count int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		liked, err = c.api.HasLiked(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.api.LikeCount(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to reconfirm like state of post %d: %w", id, err)
	}
	c.store.Update(id, func(item *models.FeedItem) {
		item.IsLiked = liked
		item.LikeCount = count
	})
	return nil
}

// ReconfirmReshare re-reads reshare state and count for id and overwrites the record.
func (c *Controller) ReconfirmReshare(ctx context.Context, id int64) error {
	var reshared bool
	var count int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reshared, err = c.api.HasReshared(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.api.ReshareCount(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to reconfirm reshare state of post %d: %w", id, err)
	}
	c.store.Update(id, func(item *models.FeedItem) {
		item.IsReshared = reshared
		item.ReshareCount = count
	})
	return nil
}

// ToggleComments flips the comment expansion flag of id and returns the new value.
func (c *Controller) ToggleComments(id int64) (bool, bool) {
	var shown bool
	_, ok := c.store.Update(id, func(item *models.FeedItem) {
		item.ShowComments = !item.ShowComments
		shown = item.ShowComments
	})
	return shown, ok
}

// InvalidateItem drops every cached page of every feed that lists id, so the
// next load observes confirmed server state.
func (c *Controller) InvalidateItem(ctx context.Context, id int64) {
	c.InvalidateFeeds(ctx, c.store.FeedsContaining(id)...)
}

// InvalidateFeeds drops the cached pages loaded so far for each key.
func (c *Controller) InvalidateFeeds(ctx context.Context, keys ...Key) {
	for _, key := range keys {
		st := c.store.State(key)
		for page := 0; page <= st.Page; page++ {
			c.pages.Invalidate(ctx, key.CacheKey(page))
		}
	}
}

func (c *Controller) resharedSet(ctx context.Context) map[int64]bool {
	out := make(map[int64]bool)
	reshares, err := c.api.Reshares(ctx)
	if err != nil {
		c.log.Warn("reshare list unavailable", zap.Error(err))
		return out
	}
	for _, r := range reshares {
		out[r.PostID] = true
	}
	return out
}

func (c *Controller) bookmarkedSet(ctx context.Context, userID int64) map[int64]bool {
	out := make(map[int64]bool)
	bookmarks, err := c.api.Bookmarks(ctx, userID)
	if err != nil {
		c.log.Warn("bookmark list unavailable", zap.Error(err))
		return out
	}
	for _, b := range bookmarks {
		out[b.PostID] = true
	}
	return out
}
