// ABOUTME: Current-user, roster, and follow-graph endpoints.
// ABOUTME: Follow relations come back as id pairs; callers resolve them against the roster.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2389-research/futurefeed/internal/models"
)

// CurrentUser returns the user owning the session.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.getJSON(ctx, "fetch current user", "/api/user/myInfo", &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, NewError(KindInvariant, "fetch current user", "server returned a user without an id")
	}
	return &out, nil
}

// Users returns every user; used as the roster for resolving ids.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.getJSON(ctx, "list users", "/api/user/all", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Following lists the relations where userID is the follower.
func (c *Client) Following(ctx context.Context, userID int64) ([]models.FollowRelation, error) {
	return c.relations(ctx, "list following", "/api/follow/following/%d", userID)
}

// Followers lists the relations where userID is followed.
func (c *Client) Followers(ctx context.Context, userID int64) ([]models.FollowRelation, error) {
	return c.relations(ctx, "list followers", "/api/follow/followers/%d", userID)
}

func (c *Client) relations(ctx context.Context, op, pathFormat string, userID int64) ([]models.FollowRelation, error) {
	var out []relation
	if err := c.getByID(ctx, op, pathFormat, userID, &out); err != nil {
		return nil, err
	}
	rels := make([]models.FollowRelation, 0, len(out))
	for _, r := range out {
		followedAt, _ := ParseTime(r.FollowedAt)
		rels = append(rels, models.FollowRelation{
			FollowerID: r.FollowerID,
			FollowedID: r.FollowedID,
			FollowedAt: followedAt,
		})
	}
	return rels, nil
}

type relation struct {
	FollowerID int64  `json:"followerId"`
	FollowedID int64  `json:"followedId"`
	FollowedAt string `json:"followedAt"`
}

// FollowStatus reports whether the session user follows userID.
func (c *Client) FollowStatus(ctx context.Context, userID int64) (bool, error) {
	var out struct {
		Following bool `json:"following"`
	}
	if err := c.getByID(ctx, "check follow", "/api/follow/status/%d", userID, &out); err != nil {
		return false, err
	}
	return out.Following, nil
}

type followRequest struct {
	FollowedID int64 `json:"followedId"`
}

// Follow makes the session user follow userID.
func (c *Client) Follow(ctx context.Context, userID int64) error {
	const op = "follow user"
	if err := checkID(op, userID); err != nil {
		return err
	}
	return c.sendJSON(ctx, op, http.MethodPost, "/api/follow", followRequest{FollowedID: userID}, nil)
}

// Unfollow makes the session user stop following userID.
func (c *Client) Unfollow(ctx context.Context, userID int64) error {
	const op = "unfollow user"
	if err := checkID(op, userID); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodDelete, fmt.Sprintf("/api/follow/%d", userID), nil, "", nil)
}
