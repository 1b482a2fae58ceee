// ABOUTME: Failure is the error every rolled-back mutation returns.
// ABOUTME: It names the action and post, carries the api.Kind, and holds the banner message shown.
package mutation

import (
	"errors"
	"fmt"

	"github.com/2389-research/futurefeed/internal/api"
)

// Action names a user mutation.
type Action string

const (
	ActionLike     Action = "like"
	ActionBookmark Action = "bookmark"
	ActionReshare  Action = "reshare"
	ActionComment  Action = "comment"
	ActionCreate   Action = "create"
	ActionDelete   Action = "delete"
)

var fallbackMessages = map[Action]string{
	ActionLike:     "Failed to update like. Please try again.",
	ActionBookmark: "Failed to update bookmark. Please try again.",
	ActionReshare:  "Failed to update reshare. Please try again.",
	ActionComment:  "Failed to add comment. Please try again.",
	ActionCreate:   "Failed to create post. Please try again.",
	ActionDelete:   "Failed to delete post. Please try again.",
}

// Failure reports a mutation that was refused or rolled back.
type Failure struct {
	Action  Action
	PostID  int64
	Kind    api.Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s post %d failed (%s): %v", f.Action, f.PostID, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// message picks the banner text for err.
func message(action Action, err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return fallbackMessages[action]
	}
	switch apiErr.Kind {
	case api.KindSessionExpired:
		return api.MsgSessionExpired
	case api.KindTransport:
		return api.MsgNetwork
	case api.KindServer, api.KindValidation, api.KindUnauthenticated, api.KindNotFound:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallbackMessages[action]
}
