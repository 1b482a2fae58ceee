// ABOUTME: Cache-first lookups of the current user, the user roster, and the topic catalogue.
// ABOUTME: Shared by enrichment, optimistic post creation, and the follow store.
package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/cache"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/models"
)

// Directory resolves users and topics, preferring fresh cache entries over the network.
type Directory struct {
	api    API
	me     *cache.Store[models.User]
	users  *cache.Store[[]models.User]
	topics *cache.Store[[]models.Topic]
	log    *zap.Logger

	mu      sync.RWMutex
	current *models.User
}

// NewDirectory creates a directory over backend.
func NewDirectory(client API, backend cache.Backend, opts ...cache.Option) *Directory {
	return &Directory{
		api:    client,
		me:     cache.NewStore[models.User](backend, opts...),
		users:  cache.NewStore[[]models.User](backend, opts...),
		topics: cache.NewStore[[]models.Topic](backend, opts...),
		log:    logging.WithComponent("directory"),
	}
}

// Me returns the signed-in user if one has been loaded. It never touches the network.
func (d *Directory) Me() (*models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return nil, false
	}
	u := *d.current
	return &u, true
}

// SetMe records the signed-in user. A nil user signs out.
func (d *Directory) SetMe(u *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u == nil {
		d.current = nil
		return
	}
	cp := *u
	d.current = &cp
}

// LoadCurrentUser resolves the signed-in user from cache or the backend.
// On failure the directory is left signed out.
func (d *Directory) LoadCurrentUser(ctx context.Context) (*models.User, error) {
	if u, ok := d.me.Fresh(ctx, cache.KeyCurrentUser); ok {
		d.SetMe(&u)
		return &u, nil
	}
	u, err := d.api.CurrentUser(ctx)
	if err != nil {
		d.SetMe(nil)
		d.me.Invalidate(ctx, cache.KeyCurrentUser)
		return nil, err
	}
	d.me.Save(ctx, cache.KeyCurrentUser, *u)
	d.SetMe(u)
	return u, nil
}

// Users returns the roster, cache first.
func (d *Directory) Users(ctx context.Context) ([]models.User, error) {
	if users, ok := d.users.Fresh(ctx, cache.KeyRoster); ok {
		return users, nil
	}
	users, err := d.api.Users(ctx)
	if err != nil {
		return nil, err
	}
	d.users.Save(ctx, cache.KeyRoster, users)
	return users, nil
}

// Roster returns the roster indexed by id.
func (d *Directory) Roster(ctx context.Context) (map[int64]models.User, error) {
	users, err := d.Users(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Topics returns the topic catalogue, cache first.
func (d *Directory) Topics(ctx context.Context) ([]models.Topic, error) {
	if topics, ok := d.topics.Fresh(ctx, cache.KeyTopics); ok {
		return topics, nil
	}
	topics, err := d.api.Topics(ctx)
	if err != nil {
		return nil, err
	}
	d.topics.Save(ctx, cache.KeyTopics, topics)
	return topics, nil
}

// TopicNames returns the catalogue as an id to name map. Failures yield an
// empty map so callers degrade to untagged posts.
func (d *Directory) TopicNames(ctx context.Context) map[int64]string {
	topics, err := d.Topics(ctx)
	if err != nil {
		d.log.Warn("topic catalogue unavailable", zap.Error(err))
		return map[int64]string{}
	}
	out := make(map[int64]string, len(topics))
	for _, t := range topics {
		out[t.ID] = t.Name
	}
	return out
}
