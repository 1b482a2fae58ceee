// ABOUTME: Tests for the feed command's flag parsing and help text.
// ABOUTME: Every profile tab named in the help must be accepted by --feed.
package main

import (
	"strings"
	"testing"

	"github.com/2389-research/futurefeed/internal/feed"
)

func TestFeedHelpListsParseableTabs(t *testing.T) {
	for _, tab := range feed.Tabs {
		if !strings.Contains(feedCmd.Long, string(tab)) {
			t.Errorf("help text does not mention tab %q", tab)
		}
		key, err := parseFeedFlag("profile:7:" + string(tab))
		if err != nil {
			t.Errorf("parseFeedFlag(profile:7:%s) error: %v", tab, err)
			continue
		}
		if key != feed.Profile(7, tab) {
			t.Errorf("parseFeedFlag(profile:7:%s) = %v", tab, key)
		}
	}
	if strings.Contains(feedCmd.Long, "likes") {
		t.Error("help text names a tab the parser rejects")
	}
}

func TestParseFeedFlagDefault(t *testing.T) {
	key, err := parseFeedFlag("")
	if err != nil || key != feed.ForYou() {
		t.Errorf("parseFeedFlag(\"\") = %v, %v", key, err)
	}
	if _, err := parseFeedFlag("profile:7:likes"); err == nil {
		t.Error("expected unknown tab to be rejected")
	}
}
