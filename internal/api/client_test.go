// ABOUTME: Tests for the REST client using hand-rolled httptest servers.
// ABOUTME: Covers session cookies, request ids, status mapping, strict delete, and multipart posts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "JSESSIONID", "sess-1", opts...)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := NewClient(raw, "JSESSIONID", "s"); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestClientSendsSessionCookieAndRequestID(t *testing.T) {
	var cookie, reqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("JSESSIONID"); err == nil {
			cookie = ck.Value
		}
		reqID = r.Header.Get(RequestIDHeader)
		_, _ = io.WriteString(w, "true")
	})

	liked, err := c.HasLiked(context.Background(), 42)
	if err != nil {
		t.Fatalf("HasLiked error: %v", err)
	}
	if !liked {
		t.Error("expected true")
	}
	if cookie != "sess-1" {
		t.Errorf("expected session cookie 'sess-1', got %q", cookie)
	}
	if _, err := uuid.Parse(reqID); err != nil {
		t.Errorf("expected uuid request id, got %q", reqID)
	}
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"unauthorized", 401, "", KindSessionExpired, MsgSessionExpired},
		{"not found", 404, "", KindNotFound, MsgNotFound},
		{"server text", 400, "Bookmark already exists.", KindServer, "Bookmark already exists."},
		{"server json", 500, `{"message":"database unavailable"}`, KindServer, "database unavailable"},
		{"server html", 502, "<html>bad gateway</html>", KindServer, "server returned 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := c.Like(context.Background(), 1)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, apiErr.Kind)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(url, "JSESSIONID", "s", WithHTTPClient(&http.Client{Timeout: time.Second}))
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	err = c.Like(context.Background(), 1)
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != MsgNetwork {
		t.Errorf("expected generic network message, got %q", apiErr.Message)
	}
}

func TestClientUnexpectedBodyIsInvariant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "definitely not a number")
	})
	if _, err := c.LikeCount(context.Background(), 1); KindOf(err) != KindInvariant {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestClientRejectsPendingIDs(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	ctx := context.Background()

	checks := map[string]error{
		"like":     c.Like(ctx, -1),
		"unlike":   c.Unlike(ctx, -2),
		"bookmark": c.AddBookmark(ctx, 1, -3),
		"reshare":  c.Reshare(ctx, -4),
		"delete":   c.DeletePost(ctx, -5),
		"follow":   c.Follow(ctx, -6),
	}
	for name, err := range checks {
		if KindOf(err) != KindInvariant {
			t.Errorf("%s: expected invariant error, got %v", name, err)
		}
	}
	if _, err := c.AddComment(ctx, -7, "hi"); KindOf(err) != KindInvariant {
		t.Errorf("comment: expected invariant error, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no requests for pending ids, got %d", calls)
	}
}

func TestDeletePostStrictAcknowledgement(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		body    string
		wantErr bool
	}{
		{"strict exact", true, DeleteAck, false},
		{"strict other text", true, "Deleted OK", true},
		{"strict trailing newline", true, DeleteAck + "\n", true},
		{"lenient other text", false, "Deleted OK", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/api/posts/del/9" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				_, _ = io.WriteString(w, tt.body)
			}, WithStrictDelete(tt.strict))

			err := c.DeletePost(context.Background(), 9)
			if tt.wantErr {
				if KindOf(err) != KindInvariant {
					t.Fatalf("expected invariant error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeletePost error: %v", err)
			}
		})
	}
}

func TestCreatePostMultipart(t *testing.T) {
	var postPart string
	var mediaName string
	var mediaBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm error: %v", err)
			return
		}
		postPart = r.FormValue("post")
		if f, h, err := r.FormFile("media"); err == nil {
			mediaName = h.Filename
			data, _ := io.ReadAll(f)
			mediaBody = string(data)
			_ = f.Close()
		}
		_, _ = io.WriteString(w, `{"id":107,"content":"hello","imageUrl":"https://cdn/x.png","createdAt":"2025-06-01T12:00:00","user":{"id":1,"username":"ada"}}`)
	})

	post, err := c.CreatePost(context.Background(), NewPost{
		Content:  "hello",
		TopicIDs: []int64{3, 4},
		Media:    &Media{Filename: "x.png", Data: []byte("PNG")},
	})
	if err != nil {
		t.Fatalf("CreatePost error: %v", err)
	}
	if post.ID != 107 || post.ImageURL != "https://cdn/x.png" {
		t.Errorf("unexpected post: %+v", post)
	}

	var meta struct {
		Content  string  `json:"content"`
		TopicIDs []int64 `json:"topicIds"`
	}
	if err := json.Unmarshal([]byte(postPart), &meta); err != nil {
		t.Fatalf("post part is not JSON: %v (%q)", err, postPart)
	}
	if meta.Content != "hello" || len(meta.TopicIDs) != 2 {
		t.Errorf("unexpected post part: %+v", meta)
	}
	if mediaName != "x.png" || mediaBody != "PNG" {
		t.Errorf("unexpected media part %q %q", mediaName, mediaBody)
	}
}

func TestAddCommentSendsPlainText(t *testing.T) {
	var contentType, body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		_, _ = io.WriteString(w, `{"id":5,"postId":42,"userId":1,"content":"nice","createdAt":"2025-06-01T12:00:00"}`)
	})

	comment, err := c.AddComment(context.Background(), 42, "nice")
	if err != nil {
		t.Fatalf("AddComment error: %v", err)
	}
	if comment.ID != 5 {
		t.Errorf("expected comment id 5, got %d", comment.ID)
	}
	if !strings.HasPrefix(contentType, "text/plain") {
		t.Errorf("expected text/plain, got %q", contentType)
	}
	if body != "nice" {
		t.Errorf("expected raw body 'nice', got %q", body)
	}
}

func TestPostItem(t *testing.T) {
	botID := int64(3)
	p := Post{
		ID:        8,
		Content:   "beep",
		CreatedAt: "2025-06-01T12:30:00",
		User:      &Author{ID: 2, Username: "Grace Hopper", DisplayName: "Grace"},
		IsBot:     true,
		BotID:     &botID,
	}
	item, ok := p.Item()
	if !ok {
		t.Fatal("expected item")
	}
	if item.Handle != "@gracehopper" || item.AuthorName != "Grace" || item.BotID != 3 {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.CreatedAt.Hour() != 12 || item.CreatedAt.Minute() != 30 {
		t.Errorf("unexpected time: %v", item.CreatedAt)
	}

	p.User = nil
	if _, ok := p.Item(); ok {
		t.Error("expected posts without an author to be rejected")
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-06-01T12:00:00", "2025-06-01T12:00:00.123456", "2025-06-01T12:00:00Z"} {
		if _, err := ParseTime(s); err != nil {
			t.Errorf("ParseTime(%q) error: %v", s, err)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for unrecognized timestamp")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewError(KindNotFound, "op", "gone"))
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("expected not-found through wrapping, got %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty kind for non-api error")
	}
	if KindOf(nil) != "" {
		t.Error("expected empty kind for nil")
	}
}
