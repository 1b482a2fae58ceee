// ABOUTME: MCP tool for following and unfollowing users.
// ABOUTME: Registers follow_user, backed by the optimistic follow-status store.
package mcp

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerFollowTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "follow_user",
		Description: "Follow or unfollow a user.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user_id": {"type": "number", "description": "ID of the user"},
				"unfollow": {"type": "boolean", "description": "Unfollow instead of follow"}
			},
			"required": ["user_id"]
		}`),
	}, s.handleFollowUser)
}

func (s *Server) handleFollowUser(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		UserID   int64 `json:"user_id"`
		Unfollow bool  `json:"unfollow"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.UserID <= 0 {
		return toolError("user_id is required"), nil
	}
	if me, ok := s.ctrl.Directory().Me(); !ok {
		return toolError("not logged in - run futurefeed setup first"), nil
	} else if me.ID == args.UserID {
		return toolError("you cannot follow yourself"), nil
	}

	if args.Unfollow {
		if err := s.follows.Unfollow(ctx, args.UserID); err != nil {
			return toolError("%v", err), nil
		}
		return textResult("Unfollowed user %d", args.UserID), nil
	}
	if err := s.follows.Follow(ctx, args.UserID); err != nil {
		return toolError("%v", err), nil
	}
	return textResult("Following user %d", args.UserID), nil
}
