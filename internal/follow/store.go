// ABOUTME: Process-wide follow-status store with a hydration gate and optimistic follow toggles.
// ABOUTME: Reads before the persisted snapshot is restored report the status as unknown.
package follow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/notice"
)

// API is the slice of the backend the follow store talks to.
type API interface {
	Following(ctx context.Context, userID int64) ([]models.FollowRelation, error)
	Followers(ctx context.Context, userID int64) ([]models.FollowRelation, error)
	FollowStatus(ctx context.Context, userID int64) (bool, error)
	Follow(ctx context.Context, userID int64) error
	Unfollow(ctx context.Context, userID int64) error
}

var _ API = (*api.Client)(nil)

// RosterFunc returns every known user keyed by id.
type RosterFunc func(ctx context.Context) (map[int64]models.User, error)

// Option configures a Store.
type Option func(*Store)

// WithBanner reports failed follow toggles on b.
func WithBanner(b *notice.Banner) Option {
	return func(s *Store) { s.banner = b }
}

// WithRoster lets Follow resolve the followed user into the following list.
func WithRoster(fn RosterFunc) Option {
	return func(s *Store) { s.roster = fn }
}

// Store holds whether the current user follows each known user.
type Store struct {
	mu        sync.RWMutex
	statuses  map[int64]bool
	following []models.User
	followers []models.User
	hydrated  bool

	api       API
	persister Persister
	banner    *notice.Banner
	roster    RosterFunc
	log       *zap.Logger

	saveMu      sync.Mutex
	hydrateOnce sync.Once
	ready       chan struct{}
}

// NewStore creates an unhydrated store. A nil persister keeps state in memory only.
func NewStore(client API, p Persister, opts ...Option) *Store {
	if p == nil {
		p = nopPersister{}
	}
	s := &Store{
		statuses:  make(map[int64]bool),
		api:       client,
		persister: p,
		log:       logging.WithComponent("follow"),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the persisted snapshot in the background. Changes made
// before it completes take precedence over the restored values. Only the
// first call has any effect.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		go s.hydrate(ctx)
	})
}

func (s *Store) hydrate(ctx context.Context) {
	snap, err := s.persister.Load(ctx)
	if err != nil {
		s.log.Warn("follow snapshot unavailable, starting empty", zap.Error(err))
		snap = nil
	}

	s.mu.Lock()
	if snap != nil {
		for id, following := range snap.Statuses {
			if _, set := s.statuses[id]; !set {
				s.statuses[id] = following
			}
		}
		if s.following == nil {
			s.following = snap.Following
		}
		if s.followers == nil {
			s.followers = snap.Followers
		}
	}
	s.hydrated = true
	s.mu.Unlock()

	s.persist()
	close(s.ready)
}

// HasHydrated reports whether the persisted snapshot has been restored.
func (s *Store) HasHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// WaitHydrated blocks until hydration completes or ctx is done.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports whether the current user follows id. known is false before
// hydration and for users never observed.
func (s *Store) Status(id int64) (following, known bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return false, false
	}
	following, known = s.statuses[id]
	return following, known
}

// FollowingIDs returns the ids whose status is true, ascending.
func (s *Store) FollowingIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return nil
	}
	ids := make([]int64, 0, len(s.statuses))
	for id, following := range s.statuses {
		if following {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Following returns a copy of the resolved following list.
func (s *Store) Following() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.following...)
}

// Followers returns a copy of the resolved followers list.
func (s *Store) Followers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.followers...)
}

// SetStatus records whether the current user follows id.
func (s *Store) SetStatus(id int64, following bool) {
	s.mu.Lock()
	s.statuses[id] = following
	s.mu.Unlock()
	s.persist()
}

// BulkSetStatus records every non-nil entry of statuses. Nil entries mean
// unknown and are skipped rather than stored as false.
func (s *Store) BulkSetStatus(statuses map[int64]*bool) {
	s.mu.Lock()
	for id, following := range statuses {
		if following == nil {
			continue
		}
		s.statuses[id] = *following
	}
	s.mu.Unlock()
	s.persist()
}

// SafeUpdateStatus applies SetStatus only while mounted reports true.
func (s *Store) SafeUpdateStatus(mounted func() bool, id int64, following bool) bool {
	if mounted != nil && !mounted() {
		return false
	}
	s.SetStatus(id, following)
	return true
}

// AddFollowingUser appends u to the following list unless its id is already present.
func (s *Store) AddFollowingUser(u models.User) {
	s.mu.Lock()
	for _, existing := range s.following {
		if existing.ID == u.ID {
			s.mu.Unlock()
			return
		}
	}
	s.following = append(append([]models.User(nil), s.following...), u)
	s.mu.Unlock()
	s.persist()
}

// RemoveFollowingUser drops id from the following list if present.
func (s *Store) RemoveFollowingUser(id int64) {
	s.mu.Lock()
	kept := make([]models.User, 0, len(s.following))
	for _, u := range s.following {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	changed := len(kept) != len(s.following)
	if changed {
		s.following = kept
	}
	s.mu.Unlock()
	if changed {
		s.persist()
	}
}

// FetchFollowing loads the users userID follows and resolves them against
// roster. On error the list is left unchanged.
func (s *Store) FetchFollowing(ctx context.Context, userID int64, roster map[int64]models.User) ([]models.User, error) {
	rels, err := s.api.Following(ctx, userID)
	if err != nil {
		s.log.Warn("following list unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch following of user %d: %w", userID, err)
	}
	users := resolve(rels, roster, func(r models.FollowRelation) int64 { return r.FollowedID })

	s.mu.Lock()
	s.following = users
	s.mu.Unlock()
	s.persist()
	return append([]models.User(nil), users...), nil
}

// FetchFollowers loads the users following userID and resolves them against
// roster. On error the list is left unchanged.
func (s *Store) FetchFollowers(ctx context.Context, userID int64, roster map[int64]models.User) ([]models.User, error) {
	rels, err := s.api.Followers(ctx, userID)
	if err != nil {
		s.log.Warn("followers list unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch followers of user %d: %w", userID, err)
	}
	users := resolve(rels, roster, func(r models.FollowRelation) int64 { return r.FollowerID })

	s.mu.Lock()
	s.followers = users
	s.mu.Unlock()
	s.persist()
	return append([]models.User(nil), users...), nil
}

// resolve maps relation ids to roster users, dropping ids the roster lacks.
func resolve(rels []models.FollowRelation, roster map[int64]models.User, pick func(models.FollowRelation) int64) []models.User {
	users := make([]models.User, 0, len(rels))
	seen := make(map[int64]bool, len(rels))
	for _, r := range rels {
		id := pick(r)
		u, ok := roster[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, u)
	}
	return users
}

// RefreshStatus re-reads whether the current user follows id and stores it.
func (s *Store) RefreshStatus(ctx context.Context, id int64) (bool, error) {
	following, err := s.api.FollowStatus(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to refresh follow status of user %d: %w", id, err)
	}
	s.SetStatus(id, following)
	return following, nil
}

// Follow marks id as followed, then confirms with the backend. On failure the
// previous status, including unknown, is restored.
func (s *Store) Follow(ctx context.Context, id int64) error {
	return s.toggle(ctx, id, true)
}

// Unfollow marks id as not followed, then confirms with the backend. On
// failure the previous status is restored.
func (s *Store) Unfollow(ctx context.Context, id int64) error {
	return s.toggle(ctx, id, false)
}

func (s *Store) toggle(ctx context.Context, id int64, follow bool) error {
	s.mu.Lock()
	prev, known := s.statuses[id]
	s.statuses[id] = follow
	s.mu.Unlock()

	var err error
	verb := "unfollow"
	if follow {
		verb = "follow"
		err = s.api.Follow(ctx, id)
	} else {
		err = s.api.Unfollow(ctx, id)
	}
	if err != nil {
		s.mu.Lock()
		if known {
			s.statuses[id] = prev
		} else {
			delete(s.statuses, id)
		}
		s.mu.Unlock()
		if s.banner != nil {
			s.banner.Set(failureMessage(verb, err))
		}
		s.log.Warn("follow toggle rolled back", zap.String("action", verb), zap.Int64("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to %s user %d: %w", verb, id, err)
	}

	s.persist()
	if !follow {
		s.RemoveFollowingUser(id)
		return nil
	}
	if s.roster != nil {
		roster, err := s.roster(ctx)
		if err != nil {
			s.log.Warn("roster unavailable after follow", zap.Error(err))
			return nil
		}
		if u, ok := roster[id]; ok {
			s.AddFollowingUser(u)
		}
	}
	return nil
}

func failureMessage(verb string, err error) string {
	switch api.KindOf(err) {
	case api.KindSessionExpired:
		return api.MsgSessionExpired
	case api.KindTransport:
		return api.MsgNetwork
	}
	return fmt.Sprintf("Failed to %s user. Please try again.", verb)
}

// persist saves the current state once hydrated. Saves are serialized so the
// file always holds the latest state.
func (s *Store) persist() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	if !s.hydrated {
		s.mu.RUnlock()
		return
	}
	snap := &Snapshot{
		Statuses:  make(map[int64]bool, len(s.statuses)),
		Following: append([]models.User(nil), s.following...),
		Followers: append([]models.User(nil), s.followers...),
	}
	for id, following := range s.statuses {
		snap.Statuses[id] = following
	}
	s.mu.RUnlock()

	if err := s.persister.Save(snap); err != nil {
		s.log.Warn("failed to persist follow snapshot", zap.Error(err))
	}
}
