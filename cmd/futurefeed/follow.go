// ABOUTME: CLI commands for the follow graph.
// ABOUTME: Follows and unfollows optimistically, refreshes status, and lists following and followers.
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/2389-research/futurefeed/internal/models"
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Manage who you follow",
}

var followAddCmd = &cobra.Command{
	Use:   "add <userId>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollowAdd,
}

var followRemoveCmd = &cobra.Command{
	Use:   "remove <userId>",
	Short: "Unfollow a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollowRemove,
}

var followStatusCmd = &cobra.Command{
	Use:   "status <userId>",
	Short: "Check whether you follow a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollowStatus,
}

var followFollowingCmd = &cobra.Command{
	Use:   "following [userId]",
	Short: "List who a user follows (default: you)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFollowFollowing,
}

var followFollowersCmd = &cobra.Command{
	Use:   "followers [userId]",
	Short: "List a user's followers (default: you)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFollowFollowers,
}

func init() {
	rootCmd.AddCommand(followCmd)
	followCmd.AddCommand(followAddCmd)
	followCmd.AddCommand(followRemoveCmd)
	followCmd.AddCommand(followStatusCmd)
	followCmd.AddCommand(followFollowingCmd)
	followCmd.AddCommand(followFollowersCmd)
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

// targetUser resolves an optional user id argument, defaulting to the signed-in user.
func targetUser(args []string) (int64, error) {
	if len(args) == 1 {
		return parseUserID(args[0])
	}
	me, ok := globalController.Directory().Me()
	if !ok {
		return 0, fmt.Errorf("not logged in - pass a user id or run 'futurefeed setup'")
	}
	return me.ID, nil
}

func otherUser(raw string) (int64, error) {
	id, err := parseUserID(raw)
	if err != nil {
		return 0, err
	}
	me, ok := globalController.Directory().Me()
	if !ok {
		return 0, fmt.Errorf("not logged in - run 'futurefeed setup' first")
	}
	if me.ID == id {
		return 0, fmt.Errorf("you cannot follow yourself")
	}
	return id, nil
}

func runFollowAdd(cmd *cobra.Command, args []string) error {
	id, err := otherUser(args[0])
	if err != nil {
		return err
	}
	if err := globalFollows.Follow(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Following user %d\n", id)
	return nil
}

func runFollowRemove(cmd *cobra.Command, args []string) error {
	id, err := otherUser(args[0])
	if err != nil {
		return err
	}
	if err := globalFollows.Unfollow(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Unfollowed user %d\n", id)
	return nil
}

func runFollowStatus(cmd *cobra.Command, args []string) error {
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	following, err := globalFollows.RefreshStatus(cmd.Context(), id)
	if err != nil {
		if cached, known := globalFollows.Status(id); known {
			fmt.Printf("%s (cached)\n", followLabel(id, cached))
			return nil
		}
		return err
	}
	fmt.Println(followLabel(id, following))
	return nil
}

func followLabel(id int64, following bool) string {
	if following {
		return fmt.Sprintf("You follow user %d", id)
	}
	return fmt.Sprintf("You do not follow user %d", id)
}

func runFollowFollowing(cmd *cobra.Command, args []string) error {
	return listRelations(cmd, args, true)
}

func runFollowFollowers(cmd *cobra.Command, args []string) error {
	return listRelations(cmd, args, false)
}

func listRelations(cmd *cobra.Command, args []string, following bool) error {
	ctx := cmd.Context()
	id, err := targetUser(args)
	if err != nil {
		return err
	}
	roster, err := globalController.Directory().Roster(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	var users []models.User
	if following {
		users, err = globalFollows.FetchFollowing(ctx, id, roster)
	} else {
		users, err = globalFollows.FetchFollowers(ctx, id, roster)
	}
	if err != nil {
		return err
	}
	printUsers(cmd.OutOrStdout(), users)
	return nil
}
