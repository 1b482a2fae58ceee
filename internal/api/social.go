// ABOUTME: Like, bookmark, reshare, comment, and topic endpoints.
// ABOUTME: Toggle calls return only an error; state and counts are re-read through the status endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/2389-research/futurefeed/internal/models"
)

// Like records a like on postID for the session user.
func (c *Client) Like(ctx context.Context, postID int64) error {
	return c.toggle(ctx, "like post", http.MethodPost, "/api/likes/%d", postID)
}

// Unlike removes the session user's like on postID.
func (c *Client) Unlike(ctx context.Context, postID int64) error {
	return c.toggle(ctx, "unlike post", http.MethodDelete, "/api/likes/%d", postID)
}

// HasLiked reports whether the session user likes postID.
func (c *Client) HasLiked(ctx context.Context, postID int64) (bool, error) {
	var out bool
	err := c.getByID(ctx, "check like", "/api/likes/has-liked/%d", postID, &out)
	return out, err
}

// LikeCount returns the number of likes on postID.
func (c *Client) LikeCount(ctx context.Context, postID int64) (int, error) {
	var out int
	err := c.getByID(ctx, "count likes", "/api/likes/count/%d", postID, &out)
	return out, err
}

// Bookmark is an entry in a user's bookmark list.
type Bookmark struct {
	PostID    int64  `json:"postId"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

// AddBookmark bookmarks postID for userID.
func (c *Client) AddBookmark(ctx context.Context, userID, postID int64) error {
	const op = "add bookmark"
	if err := checkID(op, userID, postID); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodPost, fmt.Sprintf("/api/bookmarks/%d/%d", userID, postID), nil, "", nil)
}

// RemoveBookmark removes userID's bookmark on postID.
func (c *Client) RemoveBookmark(ctx context.Context, userID, postID int64) error {
	const op = "remove bookmark"
	if err := checkID(op, userID, postID); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d/%d", userID, postID), nil, "", nil)
}

// IsBookmarked reports whether userID has bookmarked postID.
func (c *Client) IsBookmarked(ctx context.Context, userID, postID int64) (bool, error) {
	const op = "check bookmark"
	if err := checkID(op, userID, postID); err != nil {
		return false, err
	}
	var out bool
	err := c.getJSON(ctx, op, fmt.Sprintf("/api/bookmarks/%d/%d/exists", userID, postID), &out)
	return out, err
}

// Bookmarks lists userID's bookmarks.
func (c *Client) Bookmarks(ctx context.Context, userID int64) ([]Bookmark, error) {
	var out []Bookmark
	if err := c.getByID(ctx, "list bookmarks", "/api/bookmarks/%d", userID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reshare is a reshare record of the session user.
type Reshare struct {
	UserID    int64  `json:"userId"`
	PostID    int64  `json:"postId"`
	CreatedAt string `json:"createdAt"`
}

type reshareRequest struct {
	PostID int64 `json:"postId"`
}

// Reshare reshares postID as the session user.
func (c *Client) Reshare(ctx context.Context, postID int64) error {
	const op = "reshare post"
	if err := checkID(op, postID); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/reshares", reshareRequest{PostID: postID}, nil)
}

// Unreshare removes the session user's reshare of postID.
func (c *Client) Unreshare(ctx context.Context, postID int64) error {
	return c.toggle(ctx, "unreshare post", http.MethodDelete, "/api/reshares/%d", postID)
}

// Reshares lists the session user's reshares.
func (c *Client) Reshares(ctx context.Context) ([]Reshare, error) {
	var out []Reshare
	if err := c.getJSON(ctx, "list reshares", "/api/reshares", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HasReshared reports whether the session user has reshared postID.
func (c *Client) HasReshared(ctx context.Context, postID int64) (bool, error) {
	var out bool
	err := c.getByID(ctx, "check reshare", "/api/reshares/%d/has-reshared", postID, &out)
	return out, err
}

// ReshareCount returns the number of reshares of postID.
func (c *Client) ReshareCount(ctx context.Context, postID int64) (int, error) {
	var out int
	err := c.getByID(ctx, "count reshares", "/api/reshares/%d/count", postID, &out)
	return out, err
}

// Comment is a comment as returned by the backend. Author details are resolved
// separately against the user roster.
type Comment struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"postId"`
	UserID    int64  `json:"userId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Model converts c into a comment with author fields filled from author, if known.
func (c *Comment) Model(author *models.User) models.Comment {
	created, _ := ParseTime(c.CreatedAt)
	m := models.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.UserID,
		Content:   c.Content,
		CreatedAt: created,
		Username:  "Unknown",
		Handle:    "@unknown",
	}
	if author != nil {
		m.Username = author.DisplayName
		if m.Username == "" {
			m.Username = author.Username
		}
		m.Handle = models.Handle(author.Username)
		m.ProfilePicture = author.ProfilePicture
	}
	return m
}

// AddComment posts text as a comment on postID. The body is sent as plain text.
func (c *Client) AddComment(ctx context.Context, postID int64, text string) (*Comment, error) {
	const op = "add comment"
	if err := checkID(op, postID); err != nil {
		return nil, err
	}
	var out Comment
	path := fmt.Sprintf("/api/comments/%d", postID)
	if err := c.do(ctx, op, http.MethodPost, path, strings.NewReader(text), "text/plain", &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, NewError(KindInvariant, op, "server returned a comment without an id")
	}
	return &out, nil
}

// Comments lists the comments on postID.
func (c *Client) Comments(ctx context.Context, postID int64) ([]Comment, error) {
	var out []Comment
	if err := c.getByID(ctx, "list comments", "/api/comments/post/%d", postID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Topics returns the topic catalogue.
func (c *Client) Topics(ctx context.Context) ([]models.Topic, error) {
	var out []models.Topic
	if err := c.getJSON(ctx, "list topics", "/api/topics", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostTopics returns the ids of the topics attached to postID.
func (c *Client) PostTopics(ctx context.Context, postID int64) ([]int64, error) {
	var out []int64
	if err := c.getByID(ctx, "list post topics", "/api/topics/post/%d", postID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) toggle(ctx context.Context, op, method, pathFormat string, id int64) error {
	if err := checkID(op, id); err != nil {
		return err
	}
	return c.do(ctx, op, method, fmt.Sprintf(pathFormat, id), nil, "", nil)
}

func (c *Client) getByID(ctx context.Context, op, pathFormat string, id int64, out any) error {
	if err := checkID(op, id); err != nil {
		return err
	}
	return c.getJSON(ctx, op, fmt.Sprintf(pathFormat, id), out)
}
