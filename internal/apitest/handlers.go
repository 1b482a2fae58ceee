// ABOUTME: Route table and handlers for the fake FutureFeed backend.
// ABOUTME: Response shapes mirror the real backend's JSON and plain-text bodies.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// Route templates, usable with Override, Gate, Hits, and LastRequest.
const (
	RouteMyInfo          = "/api/user/myInfo"
	RouteUsers           = "/api/user/all"
	RoutePostsPage       = "/api/posts/paginated"
	RouteCreatePost      = "/api/posts"
	RouteDeletePost      = "/api/posts/del/{postId:[0-9]+}"
	RouteBotPosts        = "/api/bot-posts/by-bot/{botId:[0-9]+}"
	RouteTopics          = "/api/topics"
	RoutePostTopics      = "/api/topics/post/{postId:[0-9]+}"
	RouteTopicPage       = "/api/topics/{topicId:[0-9]+}/posts/paginated"
	RouteHasLiked        = "/api/likes/has-liked/{postId:[0-9]+}"
	RouteLikeCount       = "/api/likes/count/{postId:[0-9]+}"
	RouteLikedPosts      = "/api/likes/my-likes/{userId:[0-9]+}"
	RouteLike            = "/api/likes/{postId:[0-9]+}"
	RouteBookmarkedPosts = "/api/bookmarks/my-bookmarks/{userId:[0-9]+}"
	RouteBookmarkExists  = "/api/bookmarks/{userId:[0-9]+}/{postId:[0-9]+}/exists"
	RouteBookmark        = "/api/bookmarks/{userId:[0-9]+}/{postId:[0-9]+}"
	RouteBookmarkList    = "/api/bookmarks/{userId:[0-9]+}"
	RouteReshares        = "/api/reshares"
	RouteResharedPosts   = "/api/reshares/my-reshares/{userId:[0-9]+}"
	RouteReshareCount    = "/api/reshares/{postId:[0-9]+}/count"
	RouteHasReshared     = "/api/reshares/{postId:[0-9]+}/has-reshared"
	RouteUnreshare       = "/api/reshares/{postId:[0-9]+}"
	RouteComments        = "/api/comments/post/{postId:[0-9]+}"
	RouteCommentedPosts  = "/api/comments/my-comments/{userId:[0-9]+}"
	RouteAddComment      = "/api/comments/{postId:[0-9]+}"
	RouteFollow          = "/api/follow"
	RouteFollowStatus    = "/api/follow/status/{userId:[0-9]+}"
	RouteFollowing       = "/api/follow/following/{userId:[0-9]+}"
	RouteFollowers       = "/api/follow/followers/{userId:[0-9]+}"
	RouteUnfollow        = "/api/follow/{userId:[0-9]+}"
)

type authorJSON struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	DisplayName       string `json:"displayName"`
	Bio               string `json:"bio"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

type postJSON struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	CreatedAt string      `json:"createdAt"`
	User      *authorJSON `json:"user"`
	IsBot     bool        `json:"isBot"`
	BotID     *int64      `json:"botId"`
}

type pageJSON struct {
	Content       []postJSON `json:"content"`
	TotalPages    int        `json:"totalPages"`
	TotalElements int        `json:"totalElements"`
	Page          int        `json:"page"`
	Last          bool       `json:"last"`
}

type commentJSON struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"postId"`
	UserID    int64  `json:"userId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.middleware)

	r.HandleFunc(RouteMyInfo, s.handleMyInfo).Methods(http.MethodGet)
	r.HandleFunc(RouteUsers, s.handleUsers).Methods(http.MethodGet)

	r.HandleFunc(RoutePostsPage, s.handlePostsPage).Methods(http.MethodGet)
	r.HandleFunc(RouteCreatePost, s.handleCreatePost).Methods(http.MethodPost)
	r.HandleFunc(RouteDeletePost, s.handleDeletePost).Methods(http.MethodDelete)
	r.HandleFunc(RouteBotPosts, s.handleBotPosts).Methods(http.MethodGet)

	r.HandleFunc(RouteTopics, s.handleTopics).Methods(http.MethodGet)
	r.HandleFunc(RoutePostTopics, s.handlePostTopics).Methods(http.MethodGet)
	r.HandleFunc(RouteTopicPage, s.handleTopicPage).Methods(http.MethodGet)

	r.HandleFunc(RouteHasLiked, s.handleHasLiked).Methods(http.MethodGet)
	r.HandleFunc(RouteLikeCount, s.handleLikeCount).Methods(http.MethodGet)
	r.HandleFunc(RouteLikedPosts, s.handleLikedPosts).Methods(http.MethodGet)
	r.HandleFunc(RouteLike, s.handleLike).Methods(http.MethodPost, http.MethodDelete)

	r.HandleFunc(RouteBookmarkedPosts, s.handleBookmarkedPosts).Methods(http.MethodGet)
	r.HandleFunc(RouteBookmarkExists, s.handleBookmarkExists).Methods(http.MethodGet)
	r.HandleFunc(RouteBookmark, s.handleBookmark).Methods(http.MethodPost, http.MethodDelete)
	r.HandleFunc(RouteBookmarkList, s.handleBookmarkList).Methods(http.MethodGet)

	r.HandleFunc(RouteReshares, s.handleReshare).Methods(http.MethodPost)
	r.HandleFunc(RouteReshares, s.handleReshareList).Methods(http.MethodGet)
	r.HandleFunc(RouteResharedPosts, s.handleResharedPosts).Methods(http.MethodGet)
	r.HandleFunc(RouteReshareCount, s.handleReshareCount).Methods(http.MethodGet)
	r.HandleFunc(RouteHasReshared, s.handleHasReshared).Methods(http.MethodGet)
	r.HandleFunc(RouteUnreshare, s.handleUnreshare).Methods(http.MethodDelete)

	r.HandleFunc(RouteComments, s.handleComments).Methods(http.MethodGet)
	r.HandleFunc(RouteCommentedPosts, s.handleCommentedPosts).Methods(http.MethodGet)
	r.HandleFunc(RouteAddComment, s.handleAddComment).Methods(http.MethodPost)

	r.HandleFunc(RouteFollow, s.handleFollow).Methods(http.MethodPost)
	r.HandleFunc(RouteFollowStatus, s.handleFollowStatus).Methods(http.MethodGet)
	r.HandleFunc(RouteFollowing, s.handleFollowing).Methods(http.MethodGet)
	r.HandleFunc(RouteFollowers, s.handleFollowers).Methods(http.MethodGet)
	r.HandleFunc(RouteUnfollow, s.handleUnfollow).Methods(http.MethodDelete)

	s.router = r
}

// postView renders p. Callers hold s.mu.
func (s *Server) postView(p *Post) postJSON {
	out := postJSON{
		ID:        p.ID,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt.Format(timeLayout),
		IsBot:     p.IsBot,
	}
	if p.IsBot {
		botID := p.BotID
		out.BotID = &botID
	}
	if !p.NoAuthor {
		u := s.users[p.AuthorID]
		out.User = &authorJSON{
			ID:                u.ID,
			Username:          u.Username,
			DisplayName:       u.DisplayName,
			Bio:               u.Bio,
			ProfilePictureURL: u.ProfilePicture,
		}
	}
	return out
}

func (s *Server) postViews(posts []*Post) []postJSON {
	out := make([]postJSON, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.postView(p))
	}
	return out
}

// paginate slices posts into a page envelope. Callers hold s.mu.
func (s *Server) paginate(posts []*Post, page, size int) pageJSON {
	if size <= 0 {
		size = 10
	}
	total := len(posts)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return pageJSON{
		Content:       s.postViews(posts[start:end]),
		TotalPages:    totalPages,
		TotalElements: total,
		Page:          page,
		Last:          page >= totalPages-1,
	}
}

func (s *Server) handleMyInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[s.me]
	s.mu.Unlock()
	writeJSON(w, u)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, 0, len(s.users))
	for id := int64(1); id <= s.nextUserID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handlePostsPage(w http.ResponseWriter, r *http.Request) {
	userID := int64(queryInt(r, "userId", 0))
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.sortedPosts(func(p *Post) bool {
		if p.IsBot {
			return false
		}
		return userID == 0 || p.AuthorID == userID
	})
	writeJSON(w, s.paginate(posts, queryInt(r, "page", 0), queryInt(r, "size", 10)))
}

func (s *Server) handleTopicPage(w http.ResponseWriter, r *http.Request) {
	topicID := pathID(r, "topicId")
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.sortedPosts(func(p *Post) bool {
		for _, id := range p.TopicIDs {
			if id == topicID {
				return true
			}
		}
		return false
	})
	writeJSON(w, s.paginate(posts, queryInt(r, "page", 0), queryInt(r, "size", 10)))
}

func (s *Server) handleBotPosts(w http.ResponseWriter, r *http.Request) {
	botID := pathID(r, "botId")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.postViews(s.sortedPosts(func(p *Post) bool {
		return p.IsBot && p.BotID == botID
	})))
}

type newPostPart struct {
	Content  string  `json:"content"`
	TopicIDs []int64 `json:"topicIds"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeText(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	var part newPostPart
	if err := json.Unmarshal([]byte(r.FormValue("post")), &part); err != nil {
		writeText(w, http.StatusBadRequest, "invalid post part")
		return
	}
	if strings.TrimSpace(part.Content) == "" {
		writeText(w, http.StatusBadRequest, "Content cannot be empty")
		return
	}

	imageURL := ""
	if file, header, err := r.FormFile("media"); err == nil {
		_, _ = io.Copy(io.Discard, file)
		_ = file.Close()
		imageURL = "https://media.futurefeed.test/" + header.Filename
	}

	s.mu.Lock()
	s.nextPostID++
	p := &Post{
		ID:        s.nextPostID,
		AuthorID:  s.me,
		Content:   part.Content,
		ImageURL:  imageURL,
		CreatedAt: s.tick(),
		TopicIDs:  part.TopicIDs,
	}
	s.posts[p.ID] = p
	view := s.postView(p)
	s.mu.Unlock()

	writeJSON(w, view)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "postId")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeText(w, http.StatusNotFound, "Post not found")
		return
	}
	delete(s.posts, id)
	delete(s.likes, id)
	delete(s.comments, id)
	writeText(w, http.StatusOK, DeleteAck)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.topics)
}

func (s *Server) handlePostTopics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []int64{}
	if p, ok := s.posts[pathID(r, "postId")]; ok && p.TopicIDs != nil {
		ids = p.TopicIDs
	}
	writeJSON(w, ids)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "postId")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeText(w, http.StatusNotFound, "Post not found")
		return
	}
	if r.Method == http.MethodPost {
		setMember(s.likes, id, s.me, true)
		writeText(w, http.StatusOK, "Post liked.")
		return
	}
	setMember(s.likes, id, s.me, false)
	writeText(w, http.StatusOK, "Post unliked.")
}

func (s *Server) handleHasLiked(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.likes[pathID(r, "postId")][s.me])
}

func (s *Server) handleLikeCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, len(s.likes[pathID(r, "postId")]))
}

func (s *Server) handleLikedPosts(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.postViews(s.sortedPosts(func(p *Post) bool {
		return s.likes[p.ID][userID]
	})))
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, postID := pathID(r, "userId"), pathID(r, "postId")
	s.mu.Lock()
	defer s.mu.Unlock()
	exists := s.bookmarks[userID][postID]
	if r.Method == http.MethodPost {
		if exists {
			writeText(w, http.StatusBadRequest, "Bookmark already exists.")
			return
		}
		setMember(s.bookmarks, userID, postID, true)
		writeText(w, http.StatusOK, "Bookmark added.")
		return
	}
	if !exists {
		writeText(w, http.StatusBadRequest, "Bookmark not found.")
		return
	}
	setMember(s.bookmarks, userID, postID, false)
	writeText(w, http.StatusOK, "Bookmark removed.")
}

func (s *Server) handleBookmarkExists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.bookmarks[pathID(r, "userId")][pathID(r, "postId")])
}

type bookmarkJSON struct {
	PostID    int64  `json:"postId"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleBookmarkList(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []bookmarkJSON{}
	for _, p := range s.sortedPosts(func(p *Post) bool { return s.bookmarks[userID][p.ID] }) {
		kind := "USER_POST"
		if p.IsBot {
			kind = "BOT_POST"
		}
		out = append(out, bookmarkJSON{PostID: p.ID, Content: p.Content, Type: kind, CreatedAt: p.CreatedAt.Format(timeLayout)})
	}
	writeJSON(w, out)
}

func (s *Server) handleBookmarkedPosts(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.postViews(s.sortedPosts(func(p *Post) bool {
		return s.bookmarks[userID][p.ID]
	})))
}

func (s *Server) handleReshare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID int64 `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[req.PostID]; !ok {
		writeText(w, http.StatusNotFound, "Post not found")
		return
	}
	if s.reshares[s.me] == nil {
		s.reshares[s.me] = make(map[int64]time.Time)
	}
	s.reshares[s.me][req.PostID] = s.tick()
	writeText(w, http.StatusOK, "Post reshared.")
}

func (s *Server) handleUnreshare(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "postId")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reshares[s.me][id]; !ok {
		writeText(w, http.StatusBadRequest, "Error: reshare not found")
		return
	}
	delete(s.reshares[s.me], id)
	writeText(w, http.StatusOK, "Post unreshared.")
}

type reshareJSON struct {
	UserID    int64  `json:"userId"`
	PostID    int64  `json:"postId"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleReshareList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []reshareJSON{}
	mine := s.reshares[s.me]
	posts := s.sortedPosts(func(p *Post) bool {
		_, ok := mine[p.ID]
		return ok
	})
	for _, p := range posts {
		out = append(out, reshareJSON{UserID: s.me, PostID: p.ID, CreatedAt: mine[p.ID].Format(timeLayout)})
	}
	writeJSON(w, out)
}

func (s *Server) handleResharedPosts(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.postViews(s.sortedPosts(func(p *Post) bool {
		_, ok := s.reshares[userID][p.ID]
		return ok
	})))
}

func (s *Server) handleReshareCount(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "postId")
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, posts := range s.reshares {
		if _, ok := posts[id]; ok {
			n++
		}
	}
	writeJSON(w, n)
}

func (s *Server) handleHasReshared(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reshares[s.me][pathID(r, "postId")]
	writeJSON(w, ok)
}

func (s *Server) commentView(c comment) commentJSON {
	return commentJSON{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.Format(timeLayout),
	}
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []commentJSON{}
	for _, c := range s.comments[pathID(r, "postId")] {
		out = append(out, s.commentView(c))
	}
	writeJSON(w, out)
}

func (s *Server) handleCommentedPosts(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.postViews(s.sortedPosts(func(p *Post) bool {
		for _, c := range s.comments[p.ID] {
			if c.UserID == userID {
				return true
			}
		}
		return false
	})))
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	postID := pathID(r, "postId")
	body, _ := io.ReadAll(r.Body)
	text := string(body)
	if strings.TrimSpace(text) == "" {
		writeText(w, http.StatusBadRequest, "Comment cannot be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		writeText(w, http.StatusNotFound, "Post not found")
		return
	}
	id := s.addComment(postID, s.me, text)
	comments := s.comments[postID]
	for _, c := range comments {
		if c.ID == id {
			writeJSON(w, s.commentView(c))
			return
		}
	}
}

type relationJSON struct {
	FollowerID int64  `json:"followerId"`
	FollowedID int64  `json:"followedId"`
	FollowedAt string `json:"followedAt"`
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FollowedID int64 `json:"followedId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FollowedID <= 0 {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.FollowedID]; !ok {
		writeText(w, http.StatusNotFound, "User not found")
		return
	}
	if s.follows[s.me] == nil {
		s.follows[s.me] = make(map[int64]time.Time)
	}
	s.follows[s.me][req.FollowedID] = s.tick()
	writeText(w, http.StatusOK, "Followed successfully.")
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows[s.me], pathID(r, "userId"))
	writeText(w, http.StatusOK, "Unfollowed successfully.")
}

func (s *Server) handleFollowStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.follows[s.me][pathID(r, "userId")]
	writeJSON(w, map[string]bool{"following": ok})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []relationJSON{}
	for id := int64(1); id <= s.nextUserID; id++ {
		if at, ok := s.follows[userID][id]; ok {
			out = append(out, relationJSON{FollowerID: userID, FollowedID: id, FollowedAt: at.Format(timeLayout)})
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []relationJSON{}
	for id := int64(1); id <= s.nextUserID; id++ {
		if at, ok := s.follows[id][userID]; ok {
			out = append(out, relationJSON{FollowerID: id, FollowedID: userID, FollowedAt: at.Format(timeLayout)})
		}
	}
	writeJSON(w, out)
}

// String describes the fake for test failure messages.
func (s *Server) String() string {
	return fmt.Sprintf("apitest.Server(%s)", s.URL)
}
