// ABOUTME: The subset of the REST client the feed layer depends on.
// ABOUTME: Satisfied by *api.Client; narrowed here so the controller can be driven by any backend.
package feed

import (
	"context"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/models"
)

// API is the backend the controller and directory read from.
type API interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	Topics(ctx context.Context) ([]models.Topic, error)

	Posts(ctx context.Context, page, size int, userID int64) (*api.Page, error)
	TopicPosts(ctx context.Context, topicID int64, page, size int) (*api.Page, error)
	BotPosts(ctx context.Context, botID int64) ([]api.Post, error)
	ResharedPosts(ctx context.Context, userID int64) ([]api.Post, error)
	BookmarkedPosts(ctx context.Context, userID int64) ([]api.Post, error)
	LikedPosts(ctx context.Context, userID int64) ([]api.Post, error)
	CommentedPosts(ctx context.Context, userID int64) ([]api.Post, error)

	Reshares(ctx context.Context) ([]api.Reshare, error)
	Bookmarks(ctx context.Context, userID int64) ([]api.Bookmark, error)
	Comments(ctx context.Context, postID int64) ([]api.Comment, error)
	HasLiked(ctx context.Context, postID int64) (bool, error)
	LikeCount(ctx context.Context, postID int64) (int, error)
	HasReshared(ctx context.Context, postID int64) (bool, error)
	ReshareCount(ctx context.Context, postID int64) (int, error)
	PostTopics(ctx context.Context, postID int64) ([]int64, error)
}

var _ API = (*api.Client)(nil)
