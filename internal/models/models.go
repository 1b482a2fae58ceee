// ABOUTME: Core data models for feed items, comments, topics, users, and follow relations.
// ABOUTME: Records are held client-side by the feed store and copied on every read.
package models

import (
	"sort"
	"strings"
	"time"
)

// FeedItem is a post as held client-side, decorated with per-viewer state.
type FeedItem struct {
	ID             int64     `json:"id"`
	AuthorID       int64     `json:"authorId"`
	AuthorName     string    `json:"username"`
	Handle         string    `json:"handle"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Content        string    `json:"text"`
	ImageURL       string    `json:"image,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`

	IsLiked      bool `json:"isLiked"`
	LikeCount    int  `json:"likeCount"`
	IsBookmarked bool `json:"isBookmarked"`
	IsReshared   bool `json:"isReshared"`
	ReshareCount int  `json:"reshareCount"`
	CommentCount int  `json:"commentCount"`

	Comments     []Comment `json:"comments"`
	ShowComments bool      `json:"showComments"`
	Topics       []Topic   `json:"topics"`

	IsBot bool  `json:"isBot,omitempty"`
	BotID int64 `json:"botId,omitempty"`
}

// Clone returns a deep copy so callers can never alias store-owned slices.
func (f *FeedItem) Clone() *FeedItem {
	if f == nil {
		return nil
	}
	c := *f
	if f.Comments != nil {
		c.Comments = append([]Comment(nil), f.Comments...)
	}
	if f.Topics != nil {
		c.Topics = append([]Topic(nil), f.Topics...)
	}
	return &c
}

// IsPending reports whether the item still carries a placeholder id.
func (f *FeedItem) IsPending() bool {
	return f.ID < 0
}

// Comment is a reply on a post with its author denormalized.
type Comment struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"postId"`
	AuthorID       int64     `json:"authorId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Username       string    `json:"username"`
	Handle         string    `json:"handle"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
}

// Topic is a tag attached to posts.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the public summary of an account.
type User struct {
	ID             int64  `json:"id" yaml:"id"`
	Username       string `json:"username" yaml:"username"`
	DisplayName    string `json:"displayName" yaml:"display_name"`
	ProfilePicture string `json:"profilePicture,omitempty" yaml:"profile_picture,omitempty"`
	Bio            string `json:"bio,omitempty" yaml:"bio,omitempty"`
}

// FollowRelation is one edge of the follow graph.
type FollowRelation struct {
	FollowerID int64     `json:"followerId"`
	FollowedID int64     `json:"followedId"`
	FollowedAt time.Time `json:"followedAt"`
}

// Handle derives the @handle shown next to a display name.
func Handle(username string) string {
	return "@" + strings.Join(strings.Fields(strings.ToLower(username)), "")
}

// SortByNewest stable-sorts items by creation time, newest first.
func SortByNewest(items []*FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// TopicNames maps topic ids to catalogue entries, dropping ids with no match.
func TopicNames(ids []int64, catalogue map[int64]string) []Topic {
	topics := make([]Topic, 0, len(ids))
	for _, id := range ids {
		if name, ok := catalogue[id]; ok {
			topics = append(topics, Topic{ID: id, Name: name})
		}
	}
	return topics
}
