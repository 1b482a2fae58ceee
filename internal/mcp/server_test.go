// ABOUTME: Tests for MCP server creation and validation.
// ABOUTME: Verifies the server requires its feed components and applies options.
package mcp

import (
	"testing"
)

func TestNewServerRequiresController(t *testing.T) {
	h := newHarness(t)

	if _, err := NewServer(nil, h.engine, h.follows); err == nil {
		t.Error("expected error when controller is nil")
	}
}

func TestNewServerRequiresEngine(t *testing.T) {
	h := newHarness(t)

	if _, err := NewServer(h.ctrl, nil, h.follows); err == nil {
		t.Error("expected error when engine is nil")
	}
}

func TestNewServerRequiresFollowStore(t *testing.T) {
	h := newHarness(t)

	if _, err := NewServer(h.ctrl, h.engine, nil); err == nil {
		t.Error("expected error when follow store is nil")
	}
}

func TestNewServerWithFindPages(t *testing.T) {
	h := newHarness(t)

	server, err := NewServer(h.ctrl, h.engine, h.follows, WithFindPages(2))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if server.findPages != 2 {
		t.Errorf("expected findPages 2, got %d", server.findPages)
	}

	server, _ = NewServer(h.ctrl, h.engine, h.follows, WithFindPages(0))
	if server.findPages != DefaultFindPages {
		t.Errorf("expected default findPages, got %d", server.findPages)
	}
}
