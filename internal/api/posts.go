// ABOUTME: Post DTOs and the feed, create, and delete endpoints.
// ABOUTME: Converts backend posts into models.FeedItem with per-viewer fields left at their defaults.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/2389-research/futurefeed/internal/models"
)

// Author is the public user summary embedded in a post.
type Author struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	DisplayName       string `json:"displayName"`
	Bio               string `json:"bio"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// Post is a post as returned by the backend.
type Post struct {
	ID        int64   `json:"id"`
	Content   string  `json:"content"`
	ImageURL  string  `json:"imageUrl"`
	CreatedAt string  `json:"createdAt"`
	User      *Author `json:"user"`
	IsBot     bool    `json:"isBot"`
	BotID     *int64  `json:"botId"`
}

// Item converts p into a feed item. It reports false when the post has no
// author reference and cannot be shown.
func (p *Post) Item() (*models.FeedItem, bool) {
	if p.User == nil {
		return nil, false
	}
	created, _ := ParseTime(p.CreatedAt)
	name := p.User.DisplayName
	if name == "" {
		name = p.User.Username
	}
	item := &models.FeedItem{
		ID:             p.ID,
		AuthorID:       p.User.ID,
		AuthorName:     name,
		Handle:         models.Handle(p.User.Username),
		ProfilePicture: p.User.ProfilePictureURL,
		Content:        p.Content,
		ImageURL:       p.ImageURL,
		CreatedAt:      created,
		Comments:       []models.Comment{},
		Topics:         []models.Topic{},
		IsBot:          p.IsBot,
	}
	if p.BotID != nil {
		item.BotID = *p.BotID
	}
	return item, true
}

// Page is one page of a paginated feed.
type Page struct {
	Content       []Post `json:"content"`
	TotalPages    int    `json:"totalPages"`
	TotalElements int    `json:"totalElements"`
	Number        int    `json:"page"`
	Last          bool   `json:"last"`
}

// Posts fetches one page of the global feed, or of one user's posts when userID > 0.
func (c *Client) Posts(ctx context.Context, page, size int, userID int64) (*Page, error) {
	const op = "fetch posts"
	if err := checkID(op, userID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if userID > 0 {
		q.Set("userId", strconv.FormatInt(userID, 10))
	}
	var out Page
	if err := c.getJSON(ctx, op, "/api/posts/paginated?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopicPosts fetches one page of a topic feed. Its envelope reports Last
// instead of a reliable page count.
func (c *Client) TopicPosts(ctx context.Context, topicID int64, page, size int) (*Page, error) {
	const op = "fetch topic posts"
	if err := checkID(op, topicID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var out Page
	path := fmt.Sprintf("/api/topics/%d/posts/paginated?%s", topicID, q.Encode())
	if err := c.getJSON(ctx, op, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BotPosts fetches every post published by a bot. The endpoint is not paginated.
func (c *Client) BotPosts(ctx context.Context, botID int64) ([]Post, error) {
	return c.postList(ctx, "fetch bot posts", "/api/bot-posts/by-bot/%d", botID)
}

// ResharedPosts fetches the posts a user has reshared.
func (c *Client) ResharedPosts(ctx context.Context, userID int64) ([]Post, error) {
	return c.postList(ctx, "fetch reshared posts", "/api/reshares/my-reshares/%d", userID)
}

// BookmarkedPosts fetches the posts a user has bookmarked.
func (c *Client) BookmarkedPosts(ctx context.Context, userID int64) ([]Post, error) {
	return c.postList(ctx, "fetch bookmarked posts", "/api/bookmarks/my-bookmarks/%d", userID)
}

// LikedPosts fetches the posts a user has liked.
func (c *Client) LikedPosts(ctx context.Context, userID int64) ([]Post, error) {
	return c.postList(ctx, "fetch liked posts", "/api/likes/my-likes/%d", userID)
}

// CommentedPosts fetches the posts a user has commented on.
func (c *Client) CommentedPosts(ctx context.Context, userID int64) ([]Post, error) {
	return c.postList(ctx, "fetch commented posts", "/api/comments/my-comments/%d", userID)
}

func (c *Client) postList(ctx context.Context, op, pathFormat string, id int64) ([]Post, error) {
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	var out []Post
	if err := c.getJSON(ctx, op, fmt.Sprintf(pathFormat, id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Media is an optional file attached to a new post.
type Media struct {
	Filename string
	Data     []byte
}

// NewPost is the payload for CreatePost.
type NewPost struct {
	Content  string
	TopicIDs []int64
	Media    *Media
}

type postPart struct {
	Content  string  `json:"content"`
	TopicIDs []int64 `json:"topicIds,omitempty"`
}

// CreatePost publishes a post as a multipart form with a JSON "post" part and
// an optional "media" file part.
func (c *Client) CreatePost(ctx context.Context, np NewPost) (*Post, error) {
	const op = "create post"
	if err := checkID(op, np.TopicIDs...); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	meta, err := json.Marshal(postPart{Content: np.Content, TopicIDs: np.TopicIDs})
	if err != nil {
		return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to encode post", Err: err}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="post"`)
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to build form", Err: err}
	}
	if _, err := part.Write(meta); err != nil {
		return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to build form", Err: err}
	}

	if np.Media != nil {
		fw, err := w.CreateFormFile("media", np.Media.Filename)
		if err != nil {
			return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to attach media", Err: err}
		}
		if _, err := fw.Write(np.Media.Data); err != nil {
			return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to attach media", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return nil, &Error{Kind: KindInvariant, Op: op, Message: "failed to build form", Err: err}
	}

	var out Post
	if err := c.do(ctx, op, http.MethodPost, "/api/posts", &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, NewError(KindInvariant, op, "server returned a post without an id")
	}
	return &out, nil
}

// DeletePost deletes a post. In strict mode anything other than the literal
// DeleteAck body is treated as a failure, even with a 2xx status.
func (c *Client) DeletePost(ctx context.Context, postID int64) error {
	const op = "delete post"
	if err := checkID(op, postID); err != nil {
		return err
	}
	var body string
	if err := c.do(ctx, op, http.MethodDelete, fmt.Sprintf("/api/posts/del/%d", postID), nil, "", &body); err != nil {
		return err
	}
	if c.strictDelete && body != DeleteAck {
		return NewError(KindInvariant, op, fmt.Sprintf("unexpected delete acknowledgement %q", truncate(body)))
	}
	return nil
}
