// ABOUTME: Session validation for the FutureFeed backend.
// ABOUTME: Tests the cookie by fetching the current user through the api client.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/models"
)

// ValidateConnection checks the session by fetching the signed-in user.
// The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, apiURL, cookieName, session string) (*models.User, error) {
	client, err := api.NewClient(NormalizeURL(apiURL), cookieName, session,
		api.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if err != nil {
		return nil, err
	}

	me, err := client.CurrentUser(ctx)
	if err != nil {
		if api.KindOf(err) == api.KindSessionExpired {
			return nil, fmt.Errorf("session rejected: %w", err)
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return me, nil
}

// NormalizeURL strips trailing slashes and a trailing /api segment; request
// paths already carry the /api prefix.
func NormalizeURL(apiURL string) string {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	return strings.TrimSuffix(apiURL, "/api")
}
