// ABOUTME: Tests for the optimistic mutation engine against the fake backend.
// ABOUTME: Covers optimistic visibility, exact rollback, placeholder swaps, and refusals that skip the network.
package mutation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/apitest"
	"github.com/2389-research/futurefeed/internal/cache"
	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/notice"
)

type harness struct {
	fake   *apitest.Server
	ctrl   *feed.Controller
	store  *feed.Store
	banner *notice.Banner
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := apitest.New(t)
	client, err := api.NewClient(fake.URL, apitest.CookieName, apitest.Session)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	backend := cache.NewMemoryBackend()
	banner := notice.New(time.Hour)
	store := feed.NewStore()
	ctrl := feed.NewController(client, store, feed.NewDirectory(client, backend), backend, banner, feed.Options{})
	return &harness{fake: fake, ctrl: ctrl, store: store, banner: banner, engine: NewEngine(client, ctrl, nil)}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	if _, err := h.ctrl.Directory().LoadCurrentUser(context.Background()); err != nil {
		t.Fatalf("LoadCurrentUser error: %v", err)
	}
}

func (h *harness) load(t *testing.T, key feed.Key) {
	t.Helper()
	if err := h.ctrl.Load(context.Background(), key, 0, false); err != nil {
		t.Fatalf("Load(%s) error: %v", key, err)
	}
}

func (h *harness) item(t *testing.T, id int64) *models.FeedItem {
	t.Helper()
	it, ok := h.store.Item(id)
	if !ok {
		t.Fatalf("post %d not in store", id)
	}
	return it
}

// waitForHit blocks until the fake has seen a request on route.
func (h *harness) waitForHit(t *testing.T, method, route string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.fake.Hits(method, route) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s %s", method, route)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func asFailure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	return f
}

// seedLikedPost stores post 42 with three likes from other users.
func seedLikedPost(h *harness) int64 {
	id := h.fake.AddPost(apitest.Post{ID: 42, Content: "hello"})
	for _, name := range []string{"Grace Hopper", "Alan Turing", "Edsger Dijkstra"} {
		h.fake.SetLike(id, h.fake.AddUser(name, ""), true)
	}
	return id
}

func TestToggleLikeRollsBackOnServerError(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	id := seedLikedPost(h)
	h.load(t, feed.ForYou())

	if it := h.item(t, id); it.IsLiked || it.LikeCount != 3 {
		t.Fatalf("unexpected initial state %v/%d", it.IsLiked, it.LikeCount)
	}

	h.fake.Override(http.MethodPost, apitest.RouteLike, http.StatusInternalServerError, `{"message":"Like service down"}`)
	release := h.fake.Gate(http.MethodPost, apitest.RouteLike)

	done := make(chan error, 1)
	go func() { done <- h.engine.ToggleLike(context.Background(), id) }()

	h.waitForHit(t, http.MethodPost, apitest.RouteLike)
	if it := h.item(t, id); !it.IsLiked || it.LikeCount != 4 {
		t.Errorf("expected optimistic true/4 while in flight, got %v/%d", it.IsLiked, it.LikeCount)
	}
	release()

	err := <-done
	f := asFailure(t, err)
	if f.Kind != api.KindServer || f.Action != ActionLike || f.PostID != id {
		t.Errorf("unexpected failure %+v", f)
	}
	if it := h.item(t, id); it.IsLiked || it.LikeCount != 3 {
		t.Errorf("expected rollback to false/3, got %v/%d", it.IsLiked, it.LikeCount)
	}
	if got := h.banner.Current(); got != "Like service down" {
		t.Errorf("expected server message in banner, got %q", got)
	}
}

func TestToggleLikeConfirms(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	id := seedLikedPost(h)
	h.load(t, feed.ForYou())

	if err := h.engine.ToggleLike(ctx, id); err != nil {
		t.Fatalf("ToggleLike error: %v", err)
	}
	if it := h.item(t, id); !it.IsLiked || it.LikeCount != 4 {
		t.Errorf("expected true/4, got %v/%d", it.IsLiked, it.LikeCount)
	}
	if !h.fake.Liked(id, h.fake.Me()) {
		t.Error("expected like recorded on the backend")
	}
	if h.fake.Hits(http.MethodGet, apitest.RouteHasLiked) == 0 {
		t.Error("expected like state to be re-read after success")
	}

	if err := h.engine.ToggleLike(ctx, id); err != nil {
		t.Fatalf("second ToggleLike error: %v", err)
	}
	if it := h.item(t, id); it.IsLiked || it.LikeCount != 3 {
		t.Errorf("expected false/3 after unlike, got %v/%d", it.IsLiked, it.LikeCount)
	}
}

func TestRefusalsSkipNetwork(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		h := newHarness(t)
		id := h.fake.AddPost(apitest.Post{Content: "hello"})
		h.load(t, feed.ForYou())
		h.fake.ResetHits()

		actions := map[Action]func() error{
			ActionLike:     func() error { return h.engine.ToggleLike(ctx, id) },
			ActionBookmark: func() error { return h.engine.ToggleBookmark(ctx, id) },
			ActionReshare:  func() error { return h.engine.ToggleReshare(ctx, id) },
			ActionDelete:   func() error { return h.engine.DeletePost(ctx, id) },
			ActionComment: func() error {
				_, err := h.engine.AddComment(ctx, id, "hi")
				return err
			},
			ActionCreate: func() error {
				_, err := h.engine.CreatePost(ctx, &Compose{Text: "hi"})
				return err
			},
		}
		for action, run := range actions {
			f := asFailure(t, run())
			if f.Kind != api.KindUnauthenticated {
				t.Errorf("%s: expected not-authenticated, got %s", action, f.Kind)
			}
		}
		if n := h.fake.TotalHits(); n != 0 {
			t.Errorf("expected no requests, got %d", n)
		}
		if it := h.item(t, id); it.IsLiked || it.IsBookmarked || it.IsReshared || len(it.Comments) != 0 {
			t.Errorf("expected untouched item, got %+v", it)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		id := h.fake.AddPost(apitest.Post{Content: "hello"})
		h.load(t, feed.ForYou())
		h.fake.ResetHits()

		if _, err := h.engine.AddComment(ctx, id, "   "); asFailure(t, err).Kind != api.KindValidation {
			t.Errorf("expected validation failure for blank comment, got %v", err)
		}
		if _, err := h.engine.CreatePost(ctx, &Compose{Text: "\n"}); asFailure(t, err).Kind != api.KindValidation {
			t.Errorf("expected validation failure for blank post, got %v", err)
		}
		if n := h.fake.TotalHits(); n != 0 {
			t.Errorf("expected no requests, got %d", n)
		}
		if h.banner.Current() == "" {
			t.Error("expected banner message")
		}
	})

	t.Run("pending post", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		h.fake.ResetHits()
		if err := h.engine.ToggleLike(ctx, -1); asFailure(t, err).Kind != api.KindValidation {
			t.Errorf("expected validation failure for pending post, got %v", err)
		}
		if n := h.fake.TotalHits(); n != 0 {
			t.Errorf("expected no requests, got %d", n)
		}
	})
}

func TestToggleBookmark(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	id := h.fake.AddPost(apitest.Post{Content: "save me"})
	h.load(t, feed.ForYou())
	mine := feed.Bookmarked(h.fake.Me())
	h.load(t, mine)

	if err := h.engine.ToggleBookmark(ctx, id); err != nil {
		t.Fatalf("ToggleBookmark error: %v", err)
	}
	if !h.item(t, id).IsBookmarked || !h.store.Contains(mine, id) {
		t.Error("expected bookmarked and listed in the bookmark collection")
	}
	if !h.fake.Bookmarked(h.fake.Me(), id) {
		t.Error("expected bookmark on the backend")
	}

	h.fake.Override(http.MethodDelete, apitest.RouteBookmark, http.StatusBadRequest, "Bookmark not found.")
	err := h.engine.ToggleBookmark(ctx, id)
	if f := asFailure(t, err); f.Message != "Bookmark not found." {
		t.Errorf("expected server message, got %q", f.Message)
	}
	if !h.item(t, id).IsBookmarked || !h.store.Contains(mine, id) {
		t.Error("expected bookmark state and membership restored")
	}
}

func TestToggleReshare(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	grace := h.fake.AddUser("Grace Hopper", "Grace")
	id := h.fake.AddPost(apitest.Post{AuthorID: grace, Content: "share me"})
	h.load(t, feed.ForYou())
	mine := feed.Reshared(h.fake.Me())
	h.load(t, mine)

	h.fake.Override(http.MethodPost, apitest.RouteReshares, http.StatusServiceUnavailable, "")
	err := h.engine.ToggleReshare(ctx, id)
	if f := asFailure(t, err); f.Kind != api.KindServer || f.Message != "server returned 503" {
		t.Errorf("unexpected failure %+v", f)
	}
	if it := h.item(t, id); it.IsReshared || it.ReshareCount != 0 || h.store.Contains(mine, id) {
		t.Errorf("expected rollback, got %v/%d", it.IsReshared, it.ReshareCount)
	}

	h.fake.ClearOverride(http.MethodPost, apitest.RouteReshares)
	if err := h.engine.ToggleReshare(ctx, id); err != nil {
		t.Fatalf("ToggleReshare error: %v", err)
	}
	if it := h.item(t, id); !it.IsReshared || it.ReshareCount != 1 || !h.store.Contains(mine, id) {
		t.Errorf("expected reshared with count 1, got %v/%d", it.IsReshared, it.ReshareCount)
	}
	if !h.fake.Reshared(h.fake.Me(), id) {
		t.Error("expected reshare on the backend")
	}
}

func TestAddComment(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	id := h.fake.AddPost(apitest.Post{Content: "talk to me"})
	h.load(t, feed.ForYou())
	h.fake.SetNextCommentID(500)

	release := h.fake.Gate(http.MethodPost, apitest.RouteAddComment)
	type result struct {
		c   *models.Comment
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := h.engine.AddComment(ctx, id, "first")
		done <- result{c, err}
	}()

	h.waitForHit(t, http.MethodPost, apitest.RouteAddComment)
	it := h.item(t, id)
	if len(it.Comments) != 1 || it.Comments[0].ID >= 0 || it.CommentCount != 1 {
		t.Fatalf("expected one pending comment, got %+v", it.Comments)
	}
	if it.Comments[0].Handle != "@adalovelace" {
		t.Errorf("expected own handle on pending comment, got %q", it.Comments[0].Handle)
	}
	release()

	res := <-done
	if res.err != nil {
		t.Fatalf("AddComment error: %v", res.err)
	}
	if res.c.ID != 500 {
		t.Errorf("expected server id 500, got %d", res.c.ID)
	}
	it = h.item(t, id)
	if len(it.Comments) != 1 || it.Comments[0].ID != 500 || it.CommentCount != 1 {
		t.Errorf("expected comment swapped in place, got %+v count %d", it.Comments, it.CommentCount)
	}
}

func TestAddCommentRollsBack(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	id := h.fake.AddPost(apitest.Post{Content: "talk to me"})
	h.fake.AddComment(id, h.fake.Me(), "existing")
	h.load(t, feed.ForYou())

	h.fake.Override(http.MethodPost, apitest.RouteAddComment, http.StatusUnauthorized, "")
	_, err := h.engine.AddComment(context.Background(), id, "second")
	if f := asFailure(t, err); f.Kind != api.KindSessionExpired {
		t.Errorf("expected session-expired, got %s", f.Kind)
	}
	it := h.item(t, id)
	if len(it.Comments) != 1 || it.Comments[0].Content != "existing" || it.CommentCount != 1 {
		t.Errorf("expected comments restored, got %+v count %d", it.Comments, it.CommentCount)
	}
	if h.banner.Current() != api.MsgSessionExpired {
		t.Errorf("expected session message, got %q", h.banner.Current())
	}
}

func TestCreatePostSwapsPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	me := h.fake.Me()
	space := h.fake.AddTopic("space")
	h.fake.AddPosts(3, me)
	h.load(t, feed.ForYou())
	h.load(t, feed.Following())
	h.load(t, feed.Profile(me, feed.TabPosts))
	h.fake.SetNextPostID(107)

	form := &Compose{Text: "to the moon", TopicIDs: []int64{space}}
	release := h.fake.Gate(http.MethodPost, apitest.RouteCreatePost)
	type result struct {
		item *models.FeedItem
		err  error
	}
	done := make(chan result, 1)
	go func() {
		it, err := h.engine.CreatePost(ctx, form)
		done <- result{it, err}
	}()

	h.waitForHit(t, http.MethodPost, apitest.RouteCreatePost)
	for _, key := range []feed.Key{feed.ForYou(), feed.Following(), feed.Profile(me, feed.TabPosts)} {
		ids := h.store.IDs(key)
		if len(ids) == 0 || ids[0] != -1 {
			t.Errorf("%s: expected placeholder -1 at head, got %v", key, ids)
		}
	}
	pending := h.item(t, -1)
	if len(pending.Topics) != 1 || pending.Topics[0].Name != "space" {
		t.Errorf("expected local topic names, got %+v", pending.Topics)
	}
	release()

	res := <-done
	if res.err != nil {
		t.Fatalf("CreatePost error: %v", res.err)
	}
	if res.item.ID != 107 {
		t.Errorf("expected id 107, got %d", res.item.ID)
	}
	ids := h.store.IDs(feed.ForYou())
	if ids[0] != 107 || len(ids) != 4 {
		t.Errorf("expected 107 swapped in at head, got %v", ids)
	}
	if _, ok := h.store.Item(-1); ok {
		t.Error("expected placeholder gone")
	}
	if got := h.item(t, 107); len(got.Topics) != 1 || got.Topics[0].ID != space {
		t.Errorf("expected re-resolved topics, got %+v", got.Topics)
	}
	if form.Text != "" || form.TopicIDs != nil {
		t.Errorf("expected compose form cleared, got %+v", form)
	}
}

func TestMutationsLeaveUnloadedFeedsFetchable(t *testing.T) {
	ctx := context.Background()

	t.Run("create before for-you is loaded", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		existing := h.fake.AddPosts(3, h.fake.Me())
		h.fake.SetNextPostID(107)

		if _, err := h.engine.CreatePost(ctx, &Compose{Text: "first"}); err != nil {
			t.Fatalf("CreatePost error: %v", err)
		}
		if st := h.store.State(feed.ForYou()); st.Loaded {
			t.Fatalf("create marked for-you as loaded: %+v", st)
		}

		more, err := h.ctrl.LoadMore(ctx, feed.ForYou())
		if err != nil || !more {
			t.Fatalf("LoadMore = %v, %v; want first page", more, err)
		}
		found, err := h.ctrl.Find(ctx, feed.ForYou(), existing[0], 1)
		if err != nil || found == nil {
			t.Fatalf("Find(%d) = %v, %v", existing[0], found, err)
		}
		if err := h.engine.ToggleLike(ctx, existing[0]); err != nil {
			t.Errorf("ToggleLike error: %v", err)
		}
		if !h.store.Contains(feed.ForYou(), 107) {
			t.Error("expected the new post in the fetched page")
		}
	})

	t.Run("bookmark before the collection is loaded", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		me := h.fake.Me()
		toggled := h.fake.AddPost(apitest.Post{Content: "new bookmark"})
		saved := h.fake.AddPost(apitest.Post{Content: "saved earlier"})
		h.fake.SetBookmark(me, saved, true)
		h.load(t, feed.ForYou())

		if err := h.engine.ToggleBookmark(ctx, toggled); err != nil {
			t.Fatalf("ToggleBookmark error: %v", err)
		}
		mine := feed.Bookmarked(me)
		if st := h.store.State(mine); st.Loaded {
			t.Fatalf("bookmark created the collection: %+v", st)
		}

		if _, err := h.ctrl.LoadMore(ctx, mine); err != nil {
			t.Fatalf("LoadMore error: %v", err)
		}
		if !h.store.Contains(mine, toggled) || !h.store.Contains(mine, saved) {
			t.Errorf("expected both bookmarks from the server, got %v", h.store.IDs(mine))
		}
	})
}

func TestCreatePostFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.fake.AddPosts(2, h.fake.Me())
	h.load(t, feed.ForYou())
	before := h.store.IDs(feed.ForYou())

	h.fake.Override(http.MethodPost, apitest.RouteCreatePost, http.StatusInternalServerError, "<html>oops</html>")
	form := &Compose{Text: "draft", Media: &api.Media{Filename: "a.png", Data: []byte("png")}}
	_, err := h.engine.CreatePost(context.Background(), form)
	if f := asFailure(t, err); f.Kind != api.KindServer {
		t.Errorf("expected server-rejected, got %s", f.Kind)
	}
	after := h.store.IDs(feed.ForYou())
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("expected feed unchanged, got %v want %v", after, before)
	}
	if form.Text != "draft" || form.Media == nil {
		t.Error("expected draft preserved")
	}
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		me := h.fake.Me()
		ids := h.fake.AddPosts(3, me)
		target := ids[1]
		h.load(t, feed.ForYou())
		h.load(t, feed.Profile(me, feed.TabPosts))

		if err := h.engine.DeletePost(ctx, target); err != nil {
			t.Fatalf("DeletePost error: %v", err)
		}
		if len(h.store.FeedsContaining(target)) != 0 {
			t.Error("expected post removed from every feed")
		}
		if _, ok := h.store.Item(target); ok {
			t.Error("expected record forgotten")
		}
		if _, ok := h.fake.GetPost(target); ok {
			t.Error("expected post deleted on the backend")
		}
	})

	t.Run("unexpected acknowledgement", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		me := h.fake.Me()
		ids := h.fake.AddPosts(3, me)
		target := ids[1]
		h.load(t, feed.ForYou())
		h.load(t, feed.Profile(me, feed.TabPosts))
		want := h.store.IDs(feed.ForYou())

		h.fake.Override(http.MethodDelete, apitest.RouteDeletePost, http.StatusOK, "Deleted OK")
		err := h.engine.DeletePost(ctx, target)
		if f := asFailure(t, err); f.Kind != api.KindInvariant || f.Message != fallbackMessages[ActionDelete] {
			t.Errorf("unexpected failure %+v", f)
		}
		got := h.store.IDs(feed.ForYou())
		if len(got) != len(want) {
			t.Fatalf("expected %v restored, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: want %d, got %d", i, want[i], got[i])
			}
		}
		if !h.store.Contains(feed.Profile(me, feed.TabPosts), target) {
			t.Error("expected post restored to profile feed")
		}
	})
}

func TestNotLoadedPostSkipsNetwork(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.fake.ResetHits()

	err := h.engine.ToggleLike(context.Background(), 99)
	if f := asFailure(t, err); f.Kind != api.KindNotFound {
		t.Errorf("expected not-found, got %s", f.Kind)
	}
	if n := h.fake.TotalHits(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestMessageMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("boom"), fallbackMessages[ActionLike]},
		{"transport", &api.Error{Kind: api.KindTransport}, api.MsgNetwork},
		{"session", &api.Error{Kind: api.KindSessionExpired}, api.MsgSessionExpired},
		{"server message", &api.Error{Kind: api.KindServer, Message: "nope"}, "nope"},
		{"server without message", &api.Error{Kind: api.KindServer}, fallbackMessages[ActionLike]},
		{"invariant", &api.Error{Kind: api.KindInvariant, Message: "bad body"}, fallbackMessages[ActionLike]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := message(ActionLike, tt.err); got != tt.want {
				t.Errorf("message() = %q, want %q", got, tt.want)
			}
		})
	}
}
