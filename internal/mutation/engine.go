// ABOUTME: Optimistic mutation engine for likes, bookmarks, reshares, comments, and posts.
// ABOUTME: Every action snapshots, applies locally, calls the backend, then reconciles or rolls back.
package mutation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/notice"
	"github.com/2389-research/futurefeed/internal/tempid"
)

// API is the backend the engine writes to.
type API interface {
	Like(ctx context.Context, postID int64) error
	Unlike(ctx context.Context, postID int64) error
	AddBookmark(ctx context.Context, userID, postID int64) error
	RemoveBookmark(ctx context.Context, userID, postID int64) error
	Reshare(ctx context.Context, postID int64) error
	Unreshare(ctx context.Context, postID int64) error
	AddComment(ctx context.Context, postID int64, text string) (*api.Comment, error)
	CreatePost(ctx context.Context, np api.NewPost) (*api.Post, error)
	DeletePost(ctx context.Context, postID int64) error
	PostTopics(ctx context.Context, postID int64) ([]int64, error)
}

var _ API = (*api.Client)(nil)

// Engine applies user actions optimistically to the feed store.
type Engine struct {
	api    API
	ctrl   *feed.Controller
	store  *feed.Store
	dir    *feed.Directory
	ids    *tempid.Allocator
	banner *notice.Banner
	now    func() time.Time
	log    *zap.Logger
}

// NewEngine creates an engine writing through ctrl's store. A nil allocator
// gets a fresh one.
func NewEngine(client API, ctrl *feed.Controller, ids *tempid.Allocator) *Engine {
	if ids == nil {
		ids = tempid.New()
	}
	return &Engine{
		api:    client,
		ctrl:   ctrl,
		store:  ctrl.Store(),
		dir:    ctrl.Directory(),
		ids:    ids,
		banner: ctrl.Banner(),
		now:    time.Now,
		log:    logging.WithComponent("mutation"),
	}
}

// fail sets the banner, logs, and wraps err.
func (e *Engine) fail(action Action, postID int64, err error) *Failure {
	kind := api.KindOf(err)
	if kind == "" {
		kind = api.KindInvariant
	}
	msg := message(action, err)
	e.banner.Set(msg)
	e.log.Warn("mutation rolled back",
		zap.String("action", string(action)),
		zap.Int64("post_id", postID),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return &Failure{Action: action, PostID: postID, Kind: kind, Message: msg, Err: err}
}

// precheck refuses actions without a signed-in user or on pending posts.
// Neither case touches the network.
func (e *Engine) precheck(action Action, postID int64) (*models.User, *Failure) {
	me, ok := e.dir.Me()
	if !ok {
		err := api.NewError(api.KindUnauthenticated, string(action), fmt.Sprintf("You must be logged in to %s posts.", action))
		return nil, e.fail(action, postID, err)
	}
	if tempid.IsPending(postID) {
		err := api.NewError(api.KindValidation, string(action), "This post is still being published.")
		return nil, e.fail(action, postID, err)
	}
	return me, nil
}

func (e *Engine) notLoaded(action Action, postID int64) *Failure {
	err := api.NewError(api.KindNotFound, string(action), fmt.Sprintf("Post %d is not loaded.", postID))
	return e.fail(action, postID, err)
}

// ToggleLike flips the like state of postID.
func (e *Engine) ToggleLike(ctx context.Context, postID int64) error {
	if _, f := e.precheck(ActionLike, postID); f != nil {
		return f
	}
	before, ok := e.store.Update(postID, func(it *models.FeedItem) {
		it.IsLiked = !it.IsLiked
		if it.IsLiked {
			it.LikeCount++
		} else {
			it.LikeCount--
		}
	})
	if !ok {
		return e.notLoaded(ActionLike, postID)
	}

	var err error
	if before.IsLiked {
		err = e.api.Unlike(ctx, postID)
	} else {
		err = e.api.Like(ctx, postID)
	}
	if err != nil {
		e.store.Update(postID, func(it *models.FeedItem) {
			it.IsLiked = before.IsLiked
			it.LikeCount = before.LikeCount
		})
		return e.fail(ActionLike, postID, err)
	}

	if err := e.ctrl.Reconfirm(ctx, postID); err != nil {
		e.log.Warn("like confirmed but re-read failed", zap.Int64("post_id", postID), zap.Error(err))
	}
	e.ctrl.InvalidateItem(ctx, postID)
	return nil
}

// ToggleBookmark flips the bookmark state of postID and its membership in the
// user's bookmarked collection.
func (e *Engine) ToggleBookmark(ctx context.Context, postID int64) error {
	me, f := e.precheck(ActionBookmark, postID)
	if f != nil {
		return f
	}
	before, ok := e.store.Update(postID, func(it *models.FeedItem) {
		it.IsBookmarked = !it.IsBookmarked
	})
	if !ok {
		return e.notLoaded(ActionBookmark, postID)
	}
	collection := feed.Bookmarked(me.ID)
	undo := e.toggleMembership(collection, postID, !before.IsBookmarked)

	var err error
	if before.IsBookmarked {
		err = e.api.RemoveBookmark(ctx, me.ID, postID)
	} else {
		err = e.api.AddBookmark(ctx, me.ID, postID)
	}
	if err != nil {
		e.store.Update(postID, func(it *models.FeedItem) {
			it.IsBookmarked = before.IsBookmarked
		})
		undo()
		return e.fail(ActionBookmark, postID, err)
	}

	e.ctrl.InvalidateItem(ctx, postID)
	e.ctrl.InvalidateFeeds(ctx, collection)
	return nil
}

// ToggleReshare flips the reshare state and count of postID and its
// membership in the user's reshared collection.
func (e *Engine) ToggleReshare(ctx context.Context, postID int64) error {
	me, f := e.precheck(ActionReshare, postID)
	if f != nil {
		return f
	}
	before, ok := e.store.Update(postID, func(it *models.FeedItem) {
		it.IsReshared = !it.IsReshared
		if it.IsReshared {
			it.ReshareCount++
		} else {
			it.ReshareCount--
		}
	})
	if !ok {
		return e.notLoaded(ActionReshare, postID)
	}
	collection := feed.Reshared(me.ID)
	undo := e.toggleMembership(collection, postID, !before.IsReshared)

	var err error
	if before.IsReshared {
		err = e.api.Unreshare(ctx, postID)
	} else {
		err = e.api.Reshare(ctx, postID)
	}
	if err != nil {
		e.store.Update(postID, func(it *models.FeedItem) {
			it.IsReshared = before.IsReshared
			it.ReshareCount = before.ReshareCount
		})
		undo()
		return e.fail(ActionReshare, postID, err)
	}

	if err := e.ctrl.ReconfirmReshare(ctx, postID); err != nil {
		e.log.Warn("reshare confirmed but re-read failed", zap.Int64("post_id", postID), zap.Error(err))
	}
	e.ctrl.InvalidateItem(ctx, postID)
	e.ctrl.InvalidateFeeds(ctx, collection)
	return nil
}

// toggleMembership adds or removes postID from key and returns the inverse operation.
func (e *Engine) toggleMembership(key feed.Key, postID int64, add bool) func() {
	if add {
		if e.store.Add(key, postID) {
			return func() { e.store.Remove(key, postID) }
		}
		return func() {}
	}
	if e.store.Remove(key, postID) {
		return func() { e.store.Add(key, postID) }
	}
	return func() {}
}

// AddComment appends text as a comment on postID. The comment shows
// immediately under a placeholder id and is swapped for the server's copy on
// success.
func (e *Engine) AddComment(ctx context.Context, postID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, e.fail(ActionComment, postID, api.NewError(api.KindValidation, "comment", "Comment cannot be empty."))
	}
	me, f := e.precheck(ActionComment, postID)
	if f != nil {
		return nil, f
	}

	pending := authoredComment(me, e.ids.Next(), postID, text, e.now())
	if _, ok := e.store.Update(postID, func(it *models.FeedItem) {
		it.Comments = append(it.Comments, pending)
		it.CommentCount++
	}); !ok {
		return nil, e.notLoaded(ActionComment, postID)
	}

	created, err := e.api.AddComment(ctx, postID, text)
	if err != nil {
		e.store.Update(postID, func(it *models.FeedItem) {
			it.Comments = withoutComment(it.Comments, pending.ID)
			it.CommentCount--
		})
		return nil, e.fail(ActionComment, postID, err)
	}

	confirmed := created.Model(me)
	e.store.Update(postID, func(it *models.FeedItem) {
		for i := range it.Comments {
			if it.Comments[i].ID == pending.ID {
				it.Comments[i] = confirmed
				return
			}
		}
		it.Comments = append(it.Comments, confirmed)
	})
	e.ctrl.InvalidateItem(ctx, postID)
	return &confirmed, nil
}

func authoredComment(me *models.User, id, postID int64, text string, at time.Time) models.Comment {
	name := me.DisplayName
	if name == "" {
		name = me.Username
	}
	return models.Comment{
		ID:             id,
		PostID:         postID,
		AuthorID:       me.ID,
		Content:        text,
		CreatedAt:      at,
		Username:       name,
		Handle:         models.Handle(me.Username),
		ProfilePicture: me.ProfilePicture,
	}
}

func withoutComment(comments []models.Comment, id int64) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// CreatePost publishes form. A placeholder item appears at the head of the
// for-you, following, and own-profile feeds at once; on success it is
// replaced in place and form is cleared, on failure it is removed and form is
// left as it was.
func (e *Engine) CreatePost(ctx context.Context, form *Compose) (*models.FeedItem, error) {
	if form == nil || form.Empty() {
		return nil, e.fail(ActionCreate, 0, api.NewError(api.KindValidation, "create", "Post cannot be empty."))
	}
	me, f := e.precheck(ActionCreate, 0)
	if f != nil {
		return nil, f
	}

	catalogue := e.dir.TopicNames(ctx)
	name := me.DisplayName
	if name == "" {
		name = me.Username
	}
	pending := &models.FeedItem{
		ID:             e.ids.Next(),
		AuthorID:       me.ID,
		AuthorName:     name,
		Handle:         models.Handle(me.Username),
		ProfilePicture: me.ProfilePicture,
		Content:        form.Text,
		CreatedAt:      e.now(),
		Comments:       []models.Comment{},
		Topics:         models.TopicNames(form.TopicIDs, catalogue),
	}
	targets := []feed.Key{feed.ForYou(), feed.Following(), feed.Profile(me.ID, feed.TabPosts)}
	e.store.Prepend(pending, targets...)

	post, err := e.api.CreatePost(ctx, api.NewPost{
		Content:  form.Text,
		TopicIDs: append([]int64(nil), form.TopicIDs...),
		Media:    form.Media,
	})
	if err != nil {
		e.store.Forget(pending.ID)
		return nil, e.fail(ActionCreate, pending.ID, err)
	}

	confirmed, ok := post.Item()
	if !ok {
		confirmed = pending.Clone()
		confirmed.ID = post.ID
		confirmed.ImageURL = post.ImageURL
		if t, err := api.ParseTime(post.CreatedAt); err == nil {
			confirmed.CreatedAt = t
		}
	}
	topicIDs, err := e.api.PostTopics(ctx, post.ID)
	if err != nil {
		e.log.Warn("topics of new post unavailable", zap.Int64("post_id", post.ID), zap.Error(err))
		topicIDs = form.TopicIDs
	}
	confirmed.Topics = models.TopicNames(topicIDs, catalogue)

	e.store.Swap(pending.ID, confirmed)
	e.ctrl.InvalidateFeeds(ctx, targets...)
	form.Reset()
	return confirmed.Clone(), nil
}

// DeletePost removes postID from every feed, then deletes it on the backend.
// On failure it is restored to each feed it was removed from.
func (e *Engine) DeletePost(ctx context.Context, postID int64) error {
	if _, f := e.precheck(ActionDelete, postID); f != nil {
		return f
	}
	snapshot, ok := e.store.Item(postID)
	if !ok {
		return e.notLoaded(ActionDelete, postID)
	}
	removed := e.store.RemoveEverywhere(postID)

	if err := e.api.DeletePost(ctx, postID); err != nil {
		e.store.Restore(snapshot, removed)
		return e.fail(ActionDelete, postID, err)
	}

	e.ctrl.InvalidateFeeds(ctx, removed...)
	e.store.Forget(postID)
	return nil
}
