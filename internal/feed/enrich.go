// ABOUTME: Per-post decoration: comments with resolved authors, like state, reshare count, and topics.
// ABOUTME: Runs every call concurrently; a failed call degrades one field and never aborts the batch.
package feed

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/models"
)

// DefaultConcurrency bounds the number of enrichment calls in flight.
const DefaultConcurrency = 8

// Aux is the per-load context shared by every post in a page.
type Aux struct {
	Reshared   map[int64]bool
	Bookmarked map[int64]bool
	Roster     map[int64]models.User
	Topics     map[int64]string
}

// Enricher decorates raw posts with per-viewer state.
type Enricher struct {
	api   API
	limit int
	log   *zap.Logger
}

// NewEnricher creates an enricher. limit <= 0 uses DefaultConcurrency.
func NewEnricher(client API, limit int) *Enricher {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Enricher{api: client, limit: limit, log: logging.WithComponent("enrich")}
}

type decoration struct {
	comments     []api.Comment
	liked        bool
	likeCount    int
	reshareCount int
	topicIDs     []int64
}

// Decorate fills the derived fields of items in place.
func (e *Enricher) Decorate(ctx context.Context, items []*models.FeedItem, aux Aux) {
	results := make([]decoration, len(items))

	var g errgroup.Group
	g.SetLimit(e.limit)
	for i, item := range items {
		i, id := i, item.ID
		g.Go(func() error {
			comments, err := e.api.Comments(ctx, id)
			if !e.degraded(err, "comments", id) {
				results[i].comments = comments
			}
			return nil
		})
		g.Go(func() error {
			liked, err := e.api.HasLiked(ctx, id)
			if !e.degraded(err, "has-liked", id) {
				results[i].liked = liked
			}
			return nil
		})
		g.Go(func() error {
			n, err := e.api.LikeCount(ctx, id)
			if !e.degraded(err, "like-count", id) {
				results[i].likeCount = n
			}
			return nil
		})
		g.Go(func() error {
			n, err := e.api.ReshareCount(ctx, id)
			if !e.degraded(err, "reshare-count", id) {
				results[i].reshareCount = n
			}
			return nil
		})
		g.Go(func() error {
			ids, err := e.api.PostTopics(ctx, id)
			if !e.degraded(err, "topics", id) {
				results[i].topicIDs = ids
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, item := range items {
		r := results[i]
		item.IsLiked = r.liked
		item.LikeCount = r.likeCount
		item.ReshareCount = r.reshareCount
		item.IsReshared = aux.Reshared[item.ID]
		item.IsBookmarked = aux.Bookmarked[item.ID]
		item.Topics = models.TopicNames(r.topicIDs, aux.Topics)
		item.Comments = resolveComments(r.comments, aux.Roster)
		item.CommentCount = len(item.Comments)
	}
}

// degraded logs err and reports whether the field must fall back.
func (e *Enricher) degraded(err error, field string, postID int64) bool {
	if err == nil {
		return false
	}
	e.log.Warn("enrichment call failed",
		zap.String("field", field),
		zap.Int64("post_id", postID),
		zap.Error(err))
	return true
}

func resolveComments(comments []api.Comment, roster map[int64]models.User) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for i := range comments {
		var author *models.User
		if u, ok := roster[comments[i].UserID]; ok {
			author = &u
		}
		out = append(out, comments[i].Model(author))
	}
	return out
}
