// ABOUTME: Error taxonomy for calls to the FutureFeed REST backend.
// ABOUTME: Every failure the client returns is an *Error carrying a Kind the mutation layer can act on.
package api

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed call.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "not-authenticated"
	KindSessionExpired  Kind = "session-expired"
	KindNotFound        Kind = "not-found"
	KindServer          Kind = "server-rejected"
	KindTransport       Kind = "network-unreachable"
	KindInvariant       Kind = "invariant"
)

// User-facing messages for kinds where the server gives nothing useful.
const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgNetwork        = "Network error. Please check your connection and try again."
	MsgNotFound       = "That item no longer exists."
)

// Error is a failed backend call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error that did not come from an HTTP response.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// statusError maps a non-2xx response to an Error.
func statusError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}
	switch {
	case status == 401:
		e.Kind = KindSessionExpired
		e.Message = MsgSessionExpired
	case status == 404:
		e.Kind = KindNotFound
		e.Message = serverMessage(body, MsgNotFound)
	default:
		e.Kind = KindServer
		e.Message = serverMessage(body, fmt.Sprintf("server returned %d", status))
	}
	return e
}

const maxMessageLen = 200

// serverMessage extracts a short human message from an error body.
func serverMessage(body []byte, fallback string) string {
	if msg := jsonMessage(body); msg != "" {
		return truncate(msg)
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return fallback
	}
	return truncate(text)
}

func truncate(s string) string {
	if len(s) > maxMessageLen {
		return s[:maxMessageLen] + "..."
	}
	return s
}
