// ABOUTME: CLI commands for post mutations.
// ABOUTME: Like, bookmark, reshare, comment, create, and delete run through the optimistic engine.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/mutation"
)

// findPages bounds how far a post lookup pages through a feed.
const findPages = 5

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Act on posts",
	Long: `Like, bookmark, reshare, comment on, create, and delete posts.

Posts are looked up in the feed named by --feed, paging forward until
the post is found.`,
}

var postLikeCmd = &cobra.Command{
	Use:   "like <postId>",
	Short: "Toggle a like",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostLike,
}

var postBookmarkCmd = &cobra.Command{
	Use:   "bookmark <postId>",
	Short: "Toggle a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostBookmark,
}

var postReshareCmd = &cobra.Command{
	Use:   "reshare <postId>",
	Short: "Toggle a reshare",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostReshare,
}

var postCommentCmd = &cobra.Command{
	Use:   "comment <postId> <text>",
	Short: "Comment on a post",
	Args:  cobra.ExactArgs(2),
	RunE:  runPostComment,
}

var postCreateCmd = &cobra.Command{
	Use:   "create <text>",
	Short: "Publish a post",
	Long:  "Publish a post with optional topic ids and an attached image.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostCreate,
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <postId>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostDelete,
}

// Flags
var (
	postFeed   string
	postTopics string
	postMedia  string
)

func init() {
	rootCmd.AddCommand(postCmd)
	for _, c := range []*cobra.Command{postLikeCmd, postBookmarkCmd, postReshareCmd, postCommentCmd, postDeleteCmd} {
		postCmd.AddCommand(c)
		c.Flags().StringVar(&postFeed, "feed", "for-you", "Feed to find the post in")
	}
	postCmd.AddCommand(postCreateCmd)

	postCreateCmd.Flags().StringVar(&postTopics, "topics", "", "Comma-separated topic ids")
	postCreateCmd.Flags().StringVar(&postMedia, "media", "", "Path to an image to attach")
}

func locatePost(cmd *cobra.Command, raw string) (*models.FeedItem, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid post id %q", raw)
	}
	key, err := parseFeedFlag(postFeed)
	if err != nil {
		return nil, err
	}
	item, err := globalController.Find(cmd.Context(), key, id, findPages)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if item == nil {
		return nil, fmt.Errorf("post %d not found in the first %d pages of %s", id, findPages, key)
	}
	return item, nil
}

// current returns the store's settled copy of item, or item itself if it is gone.
func current(item *models.FeedItem) *models.FeedItem {
	if after, ok := globalController.Store().Item(item.ID); ok {
		return after
	}
	return item
}

func runPostLike(cmd *cobra.Command, args []string) error {
	item, err := locatePost(cmd, args[0])
	if err != nil {
		return err
	}
	if err := globalEngine.ToggleLike(cmd.Context(), item.ID); err != nil {
		return err
	}
	after := current(item)
	if after.IsLiked {
		fmt.Printf("Liked post %d (%d likes)\n", after.ID, after.LikeCount)
	} else {
		fmt.Printf("Unliked post %d (%d likes)\n", after.ID, after.LikeCount)
	}
	return nil
}

func runPostBookmark(cmd *cobra.Command, args []string) error {
	item, err := locatePost(cmd, args[0])
	if err != nil {
		return err
	}
	if err := globalEngine.ToggleBookmark(cmd.Context(), item.ID); err != nil {
		return err
	}
	if item.IsBookmarked {
		fmt.Printf("Removed bookmark from post %d\n", item.ID)
	} else {
		fmt.Printf("Bookmarked post %d\n", item.ID)
	}
	return nil
}

func runPostReshare(cmd *cobra.Command, args []string) error {
	item, err := locatePost(cmd, args[0])
	if err != nil {
		return err
	}
	if err := globalEngine.ToggleReshare(cmd.Context(), item.ID); err != nil {
		return err
	}
	after := current(item)
	if after.IsReshared {
		fmt.Printf("Reshared post %d (%d reshares)\n", after.ID, after.ReshareCount)
	} else {
		fmt.Printf("Undid reshare of post %d (%d reshares)\n", after.ID, after.ReshareCount)
	}
	return nil
}

func runPostComment(cmd *cobra.Command, args []string) error {
	item, err := locatePost(cmd, args[0])
	if err != nil {
		return err
	}
	comment, err := globalEngine.AddComment(cmd.Context(), item.ID, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Comment %d added to post %d\n", comment.ID, item.ID)
	return nil
}

func runPostCreate(cmd *cobra.Command, args []string) error {
	form := &mutation.Compose{Text: args[0]}

	if postTopics != "" {
		for _, raw := range strings.Split(postTopics, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", raw)
			}
			form.TopicIDs = append(form.TopicIDs, id)
		}
	}

	if postMedia != "" {
		data, err := os.ReadFile(postMedia)
		if err != nil {
			return fmt.Errorf("failed to read media: %w", err)
		}
		form.Media = &api.Media{Filename: filepath.Base(postMedia), Data: data}
	}

	item, err := globalEngine.CreatePost(cmd.Context(), form)
	if err != nil {
		return err
	}
	fmt.Printf("Post created (ID: %d)\n", item.ID)
	printItem(cmd.OutOrStdout(), item, false)
	return nil
}

func runPostDelete(cmd *cobra.Command, args []string) error {
	item, err := locatePost(cmd, args[0])
	if err != nil {
		return err
	}
	if err := globalEngine.DeletePost(cmd.Context(), item.ID); err != nil {
		return err
	}
	fmt.Printf("Post %d deleted\n", item.ID)
	return nil
}
