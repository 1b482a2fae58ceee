// ABOUTME: Normalized client-side store of feed items keyed by id.
// ABOUTME: Each feed is an ordered id list; every write swaps in a new value and readers get copies.
package feed

import (
	"sort"
	"sync"

	"github.com/2389-research/futurefeed/internal/models"
)

// State is the pagination state of one feed.
type State struct {
	Page    int
	HasMore bool
	Loaded  bool
	Len     int
}

type feedState struct {
	ids     []int64
	page    int
	hasMore bool
}

// Store holds the canonical record for every item plus the ordering of each
// feed. A post that appears in several feeds has exactly one record, so a
// mutation is visible in all of them at once.
type Store struct {
	mu    sync.RWMutex
	items map[int64]*models.FeedItem
	feeds map[Key]*feedState
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items: make(map[int64]*models.FeedItem),
		feeds: make(map[Key]*feedState),
	}
}

// Items returns copies of the items of key, in feed order.
func (s *Store) Items(key Key) []*models.FeedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.feeds[key]
	if !ok {
		return nil
	}
	out := make([]*models.FeedItem, 0, len(st.ids))
	for _, id := range st.ids {
		if item, ok := s.items[id]; ok {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Item returns a copy of the record for id.
func (s *Store) Item(id int64) (*models.FeedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// IDs returns the ordered ids of key.
func (s *Store) IDs(key Key) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.feeds[key]
	if !ok {
		return nil
	}
	return append([]int64(nil), st.ids...)
}

// State returns the pagination state of key.
func (s *Store) State(key Key) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.feeds[key]
	if !ok {
		return State{}
	}
	return State{Page: st.page, HasMore: st.hasMore, Loaded: true, Len: len(st.ids)}
}

// Contains reports whether key currently lists id.
func (s *Store) Contains(key Key, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.feeds[key]
	return ok && indexOf(st.ids, id) >= 0
}

// FeedsContaining returns every loaded feed that lists id.
func (s *Store) FeedsContaining(id int64) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []Key
	for key, st := range s.feeds {
		if indexOf(st.ids, id) >= 0 {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	return keys
}

// Replace sets key to exactly items. Incoming records overwrite stored ones.
func (s *Store) Replace(key Key, items []*models.FeedItem, page int, hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		s.items[item.ID] = item.Clone()
		ids = append(ids, item.ID)
	}
	s.feeds[key] = &feedState{ids: ids, page: page, hasMore: hasMore}
}

// Merge unions items into key. For ids key already lists the held record
// wins; ids new to key take the incoming record, even when another feed held
// an older copy. The result is stable-sorted newest first. Merging the same
// page twice is a no-op beyond the pagination state.
func (s *Store) Merge(key Key, items []*models.FeedItem, page int, hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	if st, ok := s.feeds[key]; ok {
		ids = append(ids, st.ids...)
	}
	present := make(map[int64]bool, len(ids)+len(items))
	for _, id := range ids {
		present[id] = true
	}
	for _, item := range items {
		if present[item.ID] {
			continue
		}
		present[item.ID] = true
		s.items[item.ID] = item.Clone()
		ids = append(ids, item.ID)
	}
	s.sortLocked(ids)
	s.feeds[key] = &feedState{ids: ids, page: page, hasMore: hasMore}
}

// Update applies fn to a copy of id's record and swaps it in. It returns the
// record as it was before fn ran, for rollback.
func (s *Store) Update(id int64, fn func(*models.FeedItem)) (*models.FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return nil, false
	}
	before := cur.Clone()
	next := cur.Clone()
	fn(next)
	next.ID = id
	s.items[id] = next
	return before, true
}

// Put overwrites id's record with item, if the record exists.
func (s *Store) Put(item *models.FeedItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return false
	}
	s.items[item.ID] = item.Clone()
	return true
}

// Prepend inserts item at the head of each loaded key. Feeds never fetched
// are left alone so their first load still starts at page 0.
func (s *Store) Prepend(item *models.FeedItem, keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item.Clone()
	for _, key := range keys {
		st, ok := s.feeds[key]
		if !ok || indexOf(st.ids, item.ID) >= 0 {
			continue
		}
		ids := make([]int64, 0, len(st.ids)+1)
		ids = append(ids, item.ID)
		ids = append(ids, st.ids...)
		s.feeds[key] = &feedState{ids: ids, page: st.page, hasMore: st.hasMore}
	}
}

// Add inserts id into key in creation-time order. The record must already
// exist and key must have been loaded.
func (s *Store) Add(key Key, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	st, ok := s.feeds[key]
	if !ok || indexOf(st.ids, id) >= 0 {
		return false
	}
	ids := append(append([]int64(nil), st.ids...), id)
	s.sortLocked(ids)
	s.feeds[key] = &feedState{ids: ids, page: st.page, hasMore: st.hasMore}
	return true
}

// Remove drops id from key. The record itself is kept.
func (s *Store) Remove(key Key, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.feeds[key]
	if !ok {
		return false
	}
	idx := indexOf(st.ids, id)
	if idx < 0 {
		return false
	}
	s.feeds[key] = &feedState{ids: without(st.ids, idx), page: st.page, hasMore: st.hasMore}
	return true
}

// RemoveEverywhere drops id from every feed and returns the feeds it was in.
// The record is kept so the removal can be undone with Restore.
func (s *Store) RemoveEverywhere(id int64) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []Key
	for key, st := range s.feeds {
		idx := indexOf(st.ids, id)
		if idx < 0 {
			continue
		}
		s.feeds[key] = &feedState{ids: without(st.ids, idx), page: st.page, hasMore: st.hasMore}
		removed = append(removed, key)
	}
	sortKeys(removed)
	return removed
}

// Restore re-inserts item into each loaded key and re-sorts by creation time.
func (s *Store) Restore(item *models.FeedItem, keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item.Clone()
	for _, key := range keys {
		st, ok := s.feeds[key]
		if !ok || indexOf(st.ids, item.ID) >= 0 {
			continue
		}
		ids := append(append([]int64(nil), st.ids...), item.ID)
		s.sortLocked(ids)
		s.feeds[key] = &feedState{ids: ids, page: st.page, hasMore: st.hasMore}
	}
}

// Forget deletes id's record and drops it from every feed.
func (s *Store) Forget(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	for key, st := range s.feeds {
		if idx := indexOf(st.ids, id); idx >= 0 {
			s.feeds[key] = &feedState{ids: without(st.ids, idx), page: st.page, hasMore: st.hasMore}
		}
	}
}

// Swap replaces the record for oldID with item in place: every feed keeps the
// same position, now pointing at item.ID.
func (s *Store) Swap(oldID int64, item *models.FeedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, oldID)
	s.items[item.ID] = item.Clone()
	for key, st := range s.feeds {
		idx := indexOf(st.ids, oldID)
		if idx < 0 {
			continue
		}
		ids := append([]int64(nil), st.ids...)
		if indexOf(ids, item.ID) >= 0 {
			ids = without(ids, idx)
		} else {
			ids[idx] = item.ID
		}
		s.feeds[key] = &feedState{ids: ids, page: st.page, hasMore: st.hasMore}
	}
}

// sortLocked stable-sorts ids newest first. Callers hold s.mu.
func (s *Store) sortLocked(ids []int64) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.items[ids[i]], s.items[ids[j]]
		if a == nil || b == nil {
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func without(ids []int64, idx int) []int64 {
	out := make([]int64, 0, len(ids)-1)
	out = append(out, ids[:idx]...)
	return append(out, ids[idx+1:]...)
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}
