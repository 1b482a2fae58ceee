// ABOUTME: MCP tool implementations for optimistic post mutations.
// ABOUTME: Registers like_post, bookmark_post, reshare_post, comment_post, create_post, and delete_post.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/models"
	"github.com/2389-research/futurefeed/internal/mutation"
)

const postTargetSchema = `{
	"type": "object",
	"properties": {
		"post_id": {"type": "number", "description": "ID of the post"},
		"feed": {"type": "string", "description": "Feed to search for the post when it is not loaded yet (default for-you)"}
	},
	"required": ["post_id"]
}`

func (s *Server) registerPostTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "like_post",
		Description: "Toggle your like on a post. The change shows immediately and is rolled back if the server rejects it.",
		InputSchema: json.RawMessage(postTargetSchema),
	}, s.handleLikePost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "bookmark_post",
		Description: "Toggle a bookmark on a post.",
		InputSchema: json.RawMessage(postTargetSchema),
	}, s.handleBookmarkPost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "reshare_post",
		Description: "Toggle a reshare of a post.",
		InputSchema: json.RawMessage(postTargetSchema),
	}, s.handleResharePost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "comment_post",
		Description: "Add a comment to a post.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post"},
				"feed": {"type": "string", "description": "Feed to search for the post when it is not loaded yet (default for-you)"},
				"content": {"type": "string", "description": "The comment text.", "minLength": 1}
			},
			"required": ["post_id", "content"]
		}`),
	}, s.handleCommentPost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "create_post",
		Description: "Publish a new post, optionally tagged with topics and carrying one image.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {"type": "string", "description": "The content of the post.", "minLength": 1},
				"topic_ids": {"type": "array", "items": {"type": "number"}, "description": "Optional topic ids"},
				"media_path": {"type": "string", "description": "Optional path of an image file to attach"}
			},
			"required": ["content"]
		}`),
	}, s.handleCreatePost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "delete_post",
		Description: "Delete one of your posts.",
		InputSchema: json.RawMessage(postTargetSchema),
	}, s.handleDeletePost)
}

type postTarget struct {
	PostID int64  `json:"post_id"`
	Feed   string `json:"feed"`
}

// locate makes sure the post is loaded, searching its feed if needed.
func (s *Server) locate(ctx context.Context, target postTarget) (*models.FeedItem, *gomcp.CallToolResult) {
	if target.PostID <= 0 {
		return nil, toolError("post_id is required")
	}
	key, err := parseFeed(target.Feed)
	if err != nil {
		return nil, toolError("%v", err)
	}
	item, err := s.ctrl.Find(ctx, key, target.PostID, s.findPages)
	if err != nil {
		return nil, toolError("post %d not found in %s: %v", target.PostID, key, err)
	}
	return item, nil
}

func (s *Server) handleLikePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args postTarget
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if _, res := s.locate(ctx, args); res != nil {
		return res, nil
	}

	if err := s.engine.ToggleLike(ctx, args.PostID); err != nil {
		return mutationError(err), nil
	}

	item, _ := s.ctrl.Store().Item(args.PostID)
	verb := "Unliked"
	if item.IsLiked {
		verb = "Liked"
	}
	return textResult("%s post %d (%d likes)", verb, item.ID, item.LikeCount), nil
}

func (s *Server) handleBookmarkPost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args postTarget
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if _, res := s.locate(ctx, args); res != nil {
		return res, nil
	}

	if err := s.engine.ToggleBookmark(ctx, args.PostID); err != nil {
		return mutationError(err), nil
	}

	item, _ := s.ctrl.Store().Item(args.PostID)
	if item.IsBookmarked {
		return textResult("Bookmarked post %d", item.ID), nil
	}
	return textResult("Removed bookmark from post %d", item.ID), nil
}

func (s *Server) handleResharePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args postTarget
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if _, res := s.locate(ctx, args); res != nil {
		return res, nil
	}

	if err := s.engine.ToggleReshare(ctx, args.PostID); err != nil {
		return mutationError(err), nil
	}

	item, _ := s.ctrl.Store().Item(args.PostID)
	verb := "Removed reshare of"
	if item.IsReshared {
		verb = "Reshared"
	}
	return textResult("%s post %d (%d reshares)", verb, item.ID, item.ReshareCount), nil
}

func (s *Server) handleCommentPost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		postTarget
		Content string `json:"content"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Content == "" {
		return toolError("content is required"), nil
	}
	if _, res := s.locate(ctx, args.postTarget); res != nil {
		return res, nil
	}

	c, err := s.engine.AddComment(ctx, args.PostID, args.Content)
	if err != nil {
		return mutationError(err), nil
	}
	return textResult("Comment %d added to post %d", c.ID, args.PostID), nil
}

func (s *Server) handleCreatePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Content   string  `json:"content"`
		TopicIDs  []int64 `json:"topic_ids"`
		MediaPath string  `json:"media_path"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if args.Content == "" {
		return toolError("content is required"), nil
	}

	form := &mutation.Compose{Text: args.Content, TopicIDs: args.TopicIDs}
	if args.MediaPath != "" {
		data, err := os.ReadFile(args.MediaPath)
		if err != nil {
			return toolError("failed to read media: %v", err), nil
		}
		form.Media = &api.Media{Filename: filepath.Base(args.MediaPath), Data: data}
	}

	item, err := s.engine.CreatePost(ctx, form)
	if err != nil {
		return mutationError(err), nil
	}
	return textResult("Post created (ID: %d)", item.ID), nil
}

func (s *Server) handleDeletePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args postTarget
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if _, res := s.locate(ctx, args); res != nil {
		return res, nil
	}

	if err := s.engine.DeletePost(ctx, args.PostID); err != nil {
		return mutationError(err), nil
	}
	return textResult("Post %d deleted", args.PostID), nil
}

func textResult(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
