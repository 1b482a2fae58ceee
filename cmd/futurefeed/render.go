// ABOUTME: Terminal rendering of feed items and comments for the CLI.
// ABOUTME: Uses lipgloss styles that degrade to plain text when stdout is not a terminal.
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/futurefeed/internal/models"
)

var (
	authorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	topicStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
)

func printItem(w io.Writer, item *models.FeedItem, showComments bool) {
	id := fmt.Sprintf("%d", item.ID)
	if item.IsPending() {
		id = "pending"
	}
	fmt.Fprintf(w, "[%s] %s %s  %s\n", id, authorStyle.Render(item.AuthorName),
		mutedStyle.Render(item.Handle), mutedStyle.Render(item.CreatedAt.Format("2006-01-02 15:04")))
	if len(item.Topics) > 0 {
		names := make([]string, 0, len(item.Topics))
		for _, t := range item.Topics {
			names = append(names, "#"+t.Name)
		}
		fmt.Fprintf(w, "  %s\n", topicStyle.Render(strings.Join(names, " ")))
	}
	fmt.Fprintf(w, "  %s\n", item.Content)
	if item.ImageURL != "" {
		fmt.Fprintf(w, "  image: %s\n", item.ImageURL)
	}

	fmt.Fprintf(w, "  %s %d  %s %d  %s %d",
		mark(item.IsLiked, "♥", "♡"), item.LikeCount,
		mark(item.IsReshared, "⟳*", "⟳"), item.ReshareCount,
		"✎", item.CommentCount)
	if item.IsBookmarked {
		fmt.Fprint(w, "  [bookmarked]")
	}
	fmt.Fprintln(w)

	if showComments {
		for _, c := range item.Comments {
			fmt.Fprintf(w, "    > %s %s: %s\n", authorStyle.Render(c.Username), mutedStyle.Render(c.Handle), c.Content)
		}
	}
	fmt.Fprintln(w)
}

func mark(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users.")
		return
	}
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		fmt.Fprintf(w, "[%d] %s %s\n", u.ID, authorStyle.Render(name), mutedStyle.Render(models.Handle(u.Username)))
	}
}
