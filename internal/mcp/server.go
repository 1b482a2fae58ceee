// ABOUTME: MCP server initialization and configuration for futurefeed.
// ABOUTME: Exposes feed reading, post mutations, and follow toggles as tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/follow"
	"github.com/2389-research/futurefeed/internal/mutation"
)

// DefaultFindPages bounds how many pages a tool loads while looking for a post.
const DefaultFindPages = 5

// Server wraps the MCP server with the feed controller, mutation engine, and follow store.
type Server struct {
	mcp       *gomcp.Server
	ctrl      *feed.Controller
	engine    *mutation.Engine
	follows   *follow.Store
	findPages int
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithFindPages sets how many pages are searched for a post id before giving up.
func WithFindPages(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.findPages = n
		}
	}
}

// NewServer creates an MCP server over the given feed components.
func NewServer(ctrl *feed.Controller, engine *mutation.Engine, follows *follow.Store, opts ...ServerOption) (*Server, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("feed controller is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("mutation engine is required")
	}
	if follows == nil {
		return nil, fmt.Errorf("follow store is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "futurefeed",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		ctrl:      ctrl,
		engine:    engine,
		follows:   follows,
		findPages: DefaultFindPages,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerFeedTools()
	s.registerPostTools()
	s.registerFollowTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
