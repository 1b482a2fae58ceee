// ABOUTME: HTTP client for the FutureFeed REST backend.
// ABOUTME: Carries the session cookie through a jar and maps every response onto the error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/logging"
)

// RequestIDHeader correlates a request with client log lines.
const RequestIDHeader = "X-Request-ID"

// DeleteAck is the literal body the backend returns for a successful post delete.
const DeleteAck = "Post deleted successfully"

// Client talks to the FutureFeed backend on behalf of one session.
type Client struct {
	baseURL      string
	client       *http.Client
	log          *zap.Logger
	strictDelete bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Jar is replaced with
// one holding the session cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithStrictDelete controls whether DeletePost requires the literal DeleteAck body.
func WithStrictDelete(strict bool) Option {
	return func(c *Client) {
		c.strictDelete = strict
	}
}

// NewClient creates a client for apiURL. When session is non-empty it is sent
// as cookieName on every request.
func NewClient(apiURL, cookieName, session string, opts ...Option) (*Client, error) {
	apiURL = strings.TrimRight(apiURL, "/")
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", apiURL)
	}

	c := &Client{
		baseURL:      apiURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          logging.WithComponent("api"),
		strictDelete: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if session != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: cookieName, Value: session, Path: "/"}})
	}
	c.client.Jar = jar
	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// checkID refuses placeholder ids; they exist only client-side.
func checkID(op string, ids ...int64) error {
	for _, id := range ids {
		if id < 0 {
			return NewError(KindInvariant, op, fmt.Sprintf("refusing to send pending id %d", id))
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, "", out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Kind: KindInvariant, Op: op, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

// do issues one request. out may be nil, a *string for raw text bodies, or a
// JSON target.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindInvariant, Op: op, Message: "failed to create request", Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json, text/plain")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.log.With(zap.String("op", op), zap.String("request_id", reqID))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return &Error{Kind: KindTransport, Op: op, Message: MsgNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Message: MsgNetwork, Err: err}
	}
	log.Debug("request complete",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		return statusError(op, resp.StatusCode, data)
	}
	return decode(op, data, out)
}

func decode(op string, data []byte, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case *string:
		*v = string(data)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindInvariant, Op: op, Message: "unexpected response body", Err: err}
	}
	return nil
}

// jsonMessage pulls a "message" or "error" field out of a JSON error body.
func jsonMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// ParseTime accepts the backend's zone-less local timestamps as well as RFC 3339.
func ParseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
