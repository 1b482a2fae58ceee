// ABOUTME: CLI command for reading feeds page by page.
// ABOUTME: Loads through the TTL cache and merges appended pages like infinite scroll.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/logging"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read a feed",
	Long: fmt.Sprintf(`Read a feed. Feeds are for-you, following, profile:<userId>[:tab],
topic:<topicId>, and bot:<botId>. Profile tabs are %s.

--page N loads pages 0 through N and prints the merged list.`, tabList()),
	RunE: runFeed,
}

func tabList() string {
	names := make([]string, len(feed.Tabs))
	for i, tab := range feed.Tabs {
		names[i] = string(tab)
	}
	return strings.Join(names, ", ")
}

var (
	feedName     string
	feedPage     int
	feedMore     bool
	feedComments bool
)

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().StringVar(&feedName, "feed", "for-you", "Feed to read")
	feedCmd.Flags().IntVar(&feedPage, "page", 0, "Last page to load")
	feedCmd.Flags().BoolVar(&feedMore, "more", false, "Load one page past --page if more are available")
	feedCmd.Flags().BoolVar(&feedComments, "comments", false, "Show loaded comments under each post")
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key, err := parseFeedFlag(feedName)
	if err != nil {
		return err
	}
	if feedPage < 0 {
		return fmt.Errorf("--page must not be negative")
	}

	if key.Kind == feed.KindFollowing {
		syncFollowing(ctx)
	}

	for page := 0; page <= feedPage; page++ {
		if err := globalController.Load(ctx, key, page, page > 0); err != nil {
			return fmt.Errorf("failed to load %s page %d: %w", key, page, err)
		}
		if !globalController.Store().State(key).HasMore {
			break
		}
	}
	if feedMore {
		if _, err := globalController.LoadMore(ctx, key); err != nil {
			return fmt.Errorf("failed to load more of %s: %w", key, err)
		}
	}

	items := globalController.Store().Items(key)
	if len(items) == 0 {
		fmt.Println("No posts found.")
		return nil
	}
	for _, item := range items {
		printItem(cmd.OutOrStdout(), item, feedComments)
	}

	st := globalController.Store().State(key)
	if st.HasMore {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("page %d, more available (--page %d)", st.Page, st.Page+1)))
	} else {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("page %d, end of feed", st.Page)))
	}
	return nil
}

func parseFeedFlag(name string) (feed.Key, error) {
	if name == "" {
		return feed.ForYou(), nil
	}
	return feed.ParseKey(name)
}

// syncFollowing marks everyone the current user follows so the following feed
// can filter on them. Failures leave the persisted statuses in place.
func syncFollowing(ctx context.Context) {
	me, ok := globalController.Directory().Me()
	if !ok {
		return
	}
	roster, err := globalController.Directory().Roster(ctx)
	if err != nil {
		logging.WithComponent("cli").Warn("roster unavailable", zap.Error(err))
		return
	}
	users, err := globalFollows.FetchFollowing(ctx, me.ID, roster)
	if err != nil {
		return
	}
	following := true
	statuses := make(map[int64]*bool, len(users))
	for _, u := range users {
		statuses[u.ID] = &following
	}
	globalFollows.BulkSetStatus(statuses)
}
