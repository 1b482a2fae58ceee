// ABOUTME: In-memory fake of the FutureFeed REST backend for tests.
// ABOUTME: Routes with gorilla/mux and supports per-route failure injection, gating, and hit counting.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/2389-research/futurefeed/internal/models"
)

// Session credentials the fake accepts.
const (
	CookieName = "JSESSIONID"
	Session    = "test-session"
)

// DeleteAck is the body returned for a successful delete.
const DeleteAck = "Post deleted successfully"

const timeLayout = "2006-01-02T15:04:05"

// Post is a post held by the fake.
type Post struct {
	ID        int64
	AuthorID  int64
	NoAuthor  bool
	Content   string
	ImageURL  string
	CreatedAt time.Time
	TopicIDs  []int64
	IsBot     bool
	BotID     int64
}

type comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Content   string
	CreatedAt time.Time
}

type override struct {
	status int
	body   string
}

// Request is a recorded request body and header.
type Request struct {
	Header http.Header
	Body   []byte
}

// Server is a running fake backend.
type Server struct {
	URL string

	srv    *httptest.Server
	router *mux.Router

	mu            sync.Mutex
	me            int64
	users         map[int64]models.User
	posts         map[int64]*Post
	likes         map[int64]map[int64]bool
	bookmarks     map[int64]map[int64]bool
	reshares      map[int64]map[int64]time.Time
	comments      map[int64][]comment
	topics        []models.Topic
	follows       map[int64]map[int64]time.Time
	nextUserID    int64
	nextPostID    int64
	nextCommentID int64
	nextTopicID   int64
	clock         time.Time

	overrides map[string]override
	gates     map[string]chan struct{}
	hits      map[string]int
	last      map[string]Request
}

// New starts a fake backend whose session user is "Ada Lovelace" (@adalovelace).
// The server is closed when the test finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:     make(map[int64]models.User),
		posts:     make(map[int64]*Post),
		likes:     make(map[int64]map[int64]bool),
		bookmarks: make(map[int64]map[int64]bool),
		reshares:  make(map[int64]map[int64]time.Time),
		comments:  make(map[int64][]comment),
		follows:   make(map[int64]map[int64]time.Time),
		overrides: make(map[string]override),
		gates:     make(map[string]chan struct{}),
		hits:      make(map[string]int),
		last:      make(map[string]Request),
		clock:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s.me = s.AddUser("Ada Lovelace", "Ada Lovelace")
	s.routes()
	s.srv = httptest.NewServer(s.router)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Close stops the server early.
func (s *Server) Close() {
	s.srv.Close()
}

// Me returns the session user's id.
func (s *Server) Me() int64 {
	return s.me
}

// AddUser registers a user and returns its id.
func (s *Server) AddUser(username, displayName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	id := s.nextUserID
	s.users[id] = models.User{ID: id, Username: username, DisplayName: displayName}
	return id
}

// AddPost stores p, assigning an id and creation time when unset, and returns its id.
// Posts without a creation time are stamped one minute apart, oldest first.
func (s *Server) AddPost(p Post) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextPostID++
		p.ID = s.nextPostID
	} else if p.ID > s.nextPostID {
		s.nextPostID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
	}
	if p.AuthorID == 0 && !p.NoAuthor {
		p.AuthorID = s.me
	}
	cp := p
	s.posts[p.ID] = &cp
	return p.ID
}

// AddPosts stores n posts by authorID and returns their ids, oldest first.
func (s *Server) AddPosts(n int, authorID int64) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, s.AddPost(Post{AuthorID: authorID, Content: fmt.Sprintf("post %d", i+1)}))
	}
	return ids
}

// SetNextPostID makes the next created post receive id.
func (s *Server) SetNextPostID(id int64) {
	s.mu.Lock()
	s.nextPostID = id - 1
	s.mu.Unlock()
}

// GetPost returns a copy of a stored post.
func (s *Server) GetPost(id int64) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

// SetLike records userID liking postID.
func (s *Server) SetLike(postID, userID int64, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setMember(s.likes, postID, userID, liked)
}

// Liked reports whether userID likes postID.
func (s *Server) Liked(postID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[postID][userID]
}

// SetBookmark records userID bookmarking postID.
func (s *Server) SetBookmark(userID, postID int64, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setMember(s.bookmarks, userID, postID, on)
}

// Bookmarked reports whether userID has bookmarked postID.
func (s *Server) Bookmarked(userID, postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarks[userID][postID]
}

// SetReshare records userID resharing postID.
func (s *Server) SetReshare(userID, postID int64, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !on {
		delete(s.reshares[userID], postID)
		return
	}
	if s.reshares[userID] == nil {
		s.reshares[userID] = make(map[int64]time.Time)
	}
	s.reshares[userID][postID] = s.tick()
}

// Reshared reports whether userID has reshared postID.
func (s *Server) Reshared(userID, postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reshares[userID][postID]
	return ok
}

// AddComment stores a comment and returns its id.
func (s *Server) AddComment(postID, userID int64, text string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addComment(postID, userID, text)
}

func (s *Server) addComment(postID, userID int64, text string) int64 {
	s.nextCommentID++
	c := comment{ID: s.nextCommentID, PostID: postID, UserID: userID, Content: text, CreatedAt: s.tick()}
	s.comments[postID] = append(s.comments[postID], c)
	return c.ID
}

// SetNextCommentID makes the next created comment receive id.
func (s *Server) SetNextCommentID(id int64) {
	s.mu.Lock()
	s.nextCommentID = id - 1
	s.mu.Unlock()
}

// AddTopic adds a topic to the catalogue and returns its id.
func (s *Server) AddTopic(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTopicID++
	s.topics = append(s.topics, models.Topic{ID: s.nextTopicID, Name: name})
	return s.nextTopicID
}

// SetFollow records follower following followed.
func (s *Server) SetFollow(follower, followed int64, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !on {
		delete(s.follows[follower], followed)
		return
	}
	if s.follows[follower] == nil {
		s.follows[follower] = make(map[int64]time.Time)
	}
	s.follows[follower][followed] = s.tick()
}

// Follows reports whether follower follows followed.
func (s *Server) Follows(follower, followed int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.follows[follower][followed]
	return ok
}

// Override makes every request matching method and route template answer
// with status and body instead of the normal handler.
func (s *Server) Override(method, route string, status int, body string) {
	s.mu.Lock()
	s.overrides[routeKey(method, route)] = override{status: status, body: body}
	s.mu.Unlock()
}

// ClearOverride restores the normal handler for a route.
func (s *Server) ClearOverride(method, route string) {
	s.mu.Lock()
	delete(s.overrides, routeKey(method, route))
	s.mu.Unlock()
}

// Gate holds requests to a route until the returned release func is called.
func (s *Server) Gate(method, route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[routeKey(method, route)] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, routeKey(method, route))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Hits returns how many requests reached a route.
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, route)]
}

// TotalHits returns the number of requests received on any route.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// ResetHits zeroes every hit counter.
func (s *Server) ResetHits() {
	s.mu.Lock()
	s.hits = make(map[string]int)
	s.mu.Unlock()
}

// LastRequest returns the most recent request seen on a route.
func (s *Server) LastRequest(method, route string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.last[routeKey(method, route)]
	return r, ok
}

func routeKey(method, route string) string {
	return method + " " + route
}

// tick advances the fake clock by a minute. Callers hold s.mu.
func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func setMember(m map[int64]map[int64]bool, outer, inner int64, on bool) {
	if !on {
		delete(m[outer], inner)
		return
	}
	if m[outer] == nil {
		m[outer] = make(map[int64]bool)
	}
	m[outer][inner] = true
}

// middleware records, gates, authenticates, and applies overrides.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tmpl = t
			}
		}
		key := routeKey(r.Method, tmpl)

		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.hits[key]++
		s.last[key] = Request{Header: r.Header.Clone(), Body: body}
		gate := s.gates[key]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if c, err := r.Cookie(CookieName); err != nil || c.Value != Session {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		ov, ok := s.overrides[key]
		s.mu.Unlock()
		if ok {
			if strings.HasPrefix(ov.body, "{") || strings.HasPrefix(ov.body, "[") {
				w.Header().Set("Content-Type", "application/json")
			} else {
				w.Header().Set("Content-Type", "text/plain")
			}
			w.WriteHeader(ov.status)
			_, _ = io.WriteString(w, ov.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}

// sortedPosts returns posts matching keep, newest first. Callers hold s.mu.
func (s *Server) sortedPosts(keep func(*Post) bool) []*Post {
	var out []*Post
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
