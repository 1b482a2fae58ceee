// ABOUTME: MCP tool for reading feeds page by page.
// ABOUTME: Registers read_feed and renders feed items as plain text.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/mutation"
)

func (s *Server) registerFeedTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_feed",
		Description: "Read a page of a FutureFeed feed, decorated with like, bookmark, reshare, comment, and topic state.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"feed": {"type": "string", "description": "for-you, following, profile:<userId>[:posts|reshared|liked|bookmarked|commented], topic:<topicId>, or bot:<botId> (default for-you)"},
				"page": {"type": "number", "description": "Zero-based page to load (default 0)"},
				"more": {"type": "boolean", "description": "Append the next page to what is already loaded instead of loading a fixed page"}
			}
		}`),
	}, s.handleReadFeed)
}

func (s *Server) handleReadFeed(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Feed string `json:"feed"`
		Page int    `json:"page"`
		More bool   `json:"more"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	key, err := parseFeed(args.Feed)
	if err != nil {
		return toolError("%v", err), nil
	}
	if args.Page < 0 {
		return toolError("page must not be negative"), nil
	}

	if args.More {
		if _, err := s.ctrl.LoadMore(ctx, key); err != nil {
			return toolError("failed to load more: %v", err), nil
		}
	} else if err := s.ctrl.Load(ctx, key, args.Page, args.Page > 0); err != nil {
		return toolError("failed to load feed: %v", err), nil
	}

	items := s.ctrl.Store().Items(key)
	st := s.ctrl.Store().State(key)
	if len(items) == 0 {
		return &gomcp.CallToolResult{
			Content: []gomcp.Content{&gomcp.TextContent{Text: "No posts found."}},
		}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Feed %s (page %d", key, st.Page))
	if st.HasMore {
		sb.WriteString(", more available")
	}
	sb.WriteString(")\n")
	for _, item := range items {
		writeItem(&sb, item)
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func parseFeed(name string) (feed.Key, error) {
	if strings.TrimSpace(name) == "" {
		return feed.ForYou(), nil
	}
	return feed.ParseKey(name)
}

func writeItem(sb *strings.Builder, item *models.FeedItem) {
	id := fmt.Sprintf("%d", item.ID)
	if item.IsPending() {
		id = "pending"
	}
	sb.WriteString(fmt.Sprintf("---\n[%s] %s %s [%s]", id, item.AuthorName, item.Handle, item.CreatedAt.Format("2006-01-02 15:04:05")))
	if len(item.Topics) > 0 {
		names := make([]string, 0, len(item.Topics))
		for _, t := range item.Topics {
			names = append(names, t.Name)
		}
		sb.WriteString(fmt.Sprintf(" #%s", strings.Join(names, " #")))
	}
	sb.WriteString(fmt.Sprintf("\n%s\n", item.Content))
	if item.ImageURL != "" {
		sb.WriteString(fmt.Sprintf("image: %s\n", item.ImageURL))
	}

	var flags []string
	if item.IsLiked {
		flags = append(flags, "liked")
	}
	if item.IsBookmarked {
		flags = append(flags, "bookmarked")
	}
	if item.IsReshared {
		flags = append(flags, "reshared")
	}
	sb.WriteString(fmt.Sprintf("likes: %d, reshares: %d, comments: %d", item.LikeCount, item.ReshareCount, item.CommentCount))
	if len(flags) > 0 {
		sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(flags, ", ")))
	}
	sb.WriteString("\n")
}

// mutationError renders a failed mutation as a tool error.
func mutationError(err error) *gomcp.CallToolResult {
	var f *mutation.Failure
	if errors.As(err, &f) {
		return toolError("%s (%s)", f.Message, f.Kind)
	}
	return toolError("%v", err)
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
