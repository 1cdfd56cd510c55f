package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/anonto42/showyourbits/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newTestEcho returns an echo instance whose requests are signed in as the uid in the
// X-Test-User header.
func newTestEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	g := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-Test-User"); uid != "" {
				session.Set(c, &session.Session{UserID: uid, Email: uid + "@example.com"})
			}
			return next(c)
		}
	})
	return e, g
}

func do(t *testing.T, e *echo.Echo, method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set("X-Test-User", uid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, b []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(b, v), string(b))
}

// decodeData unwraps the {"success":true,"data":...} envelope.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type fakePosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newFakePosts() *fakePosts { return &fakePosts{posts: map[string]*models.Post{}} }

func (f *fakePosts) add(authorID, content string) *models.Post {
	p := &models.Post{
		ID:        primitive.NewObjectID(),
		Content:   content,
		AuthorID:  authorID,
		LikedBy:   []string{},
		CreatedAt: time.Now(),
	}
	f.mu.Lock()
	f.posts[p.ID.Hex()] = p
	f.mu.Unlock()
	return p
}

func (f *fakePosts) CreatePost(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	cp := *post
	f.posts[post.ID.Hex()] = &cp
	return nil
}

func (f *fakePosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	cp := *p
	cp.LikedBy = append([]string{}, p.LikedBy...)
	return &cp, nil
}

func (f *fakePosts) list(match func(*models.Post) bool) []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Post{}
	for _, p := range f.posts {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakePosts) GetPostsByUserID(_ context.Context, userID string, limit int64) ([]models.Post, error) {
	out := f.list(func(p *models.Post) bool { return p.AuthorID == userID })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	out := f.list(func(*models.Post) bool { return true })
	if skip >= int64(len(out)) {
		return []models.Post{}, nil
	}
	out = out[skip:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) UpdatePostContent(ctx context.Context, id, content string) (*models.Post, error) {
	f.mu.Lock()
	p, ok := f.posts[id]
	if ok {
		p.Content = content
	}
	f.mu.Unlock()
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	return f.GetPostByID(ctx, id)
}

func (f *fakePosts) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePosts) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	f.mu.Lock()
	p, ok := f.posts[postID]
	if !ok {
		f.mu.Unlock()
		return nil, false, repositories.ErrPostNotFound
	}
	liked := !p.LikedByUser(userID)
	if liked {
		p.LikedBy = append(p.LikedBy, userID)
		p.Likes++
	} else {
		kept := []string{}
		for _, id := range p.LikedBy {
			if id != userID {
				kept = append(kept, id)
			}
		}
		p.LikedBy = kept
		p.Likes--
	}
	f.mu.Unlock()
	post, err := f.GetPostByID(ctx, postID)
	return post, liked, err
}

func (f *fakePosts) SetCommentsCount(_ context.Context, postID string, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return repositories.ErrPostNotFound
	}
	p.Comments = int(count)
	return nil
}

func (f *fakePosts) AllPostIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.posts))
	for id := range f.posts {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		f.users[u.UID] = &u
	}
	return f
}

func (f *fakeUsers) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.UID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByUID(uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUsers) GetUsers() ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (f *fakeUsers) UpdateUser(user *models.User) error {
	return f.CreateUser(user)
}

func (f *fakeUsers) DeleteUser(uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[uid]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.users, uid)
	return nil
}

func (f *fakeUsers) SearchUsers(query string) ([]models.User, error) {
	all, _ := f.GetUsers()
	out := []models.User{}
	q := strings.ToLower(query)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeComments struct {
	mu       sync.Mutex
	nextID   uint
	comments map[uint]*models.Comment
	likes    map[uint]map[string]bool
}

func newFakeComments() *fakeComments {
	return &fakeComments{comments: map[uint]*models.Comment{}, likes: map[uint]map[string]bool{}}
}

func (f *fakeComments) CreateComment(comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	comment.ID = f.nextID
	comment.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	cp := *comment
	f.comments[comment.ID] = &cp
	return nil
}

func (f *fakeComments) GetCommentByID(id uint) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, repositories.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) GetCommentsByPostID(postID string) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeComments) UpdateComment(comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[comment.ID]
	if !ok {
		return repositories.ErrCommentNotFound
	}
	c.Content = comment.Content
	return nil
}

func (f *fakeComments) DeleteCommentWithReplies(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return repositories.ErrCommentNotFound
	}
	for cid, c := range f.comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(f.comments, cid)
		}
	}
	return nil
}

func (f *fakeComments) DeleteCommentsByPostID(postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.PostID == postID {
			delete(f.comments, id)
		}
	}
	return nil
}

func (f *fakeComments) CountByPostID(postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (f *fakeComments) ToggleCommentLike(commentID uint, userID string) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return false, 0, repositories.ErrCommentNotFound
	}
	if f.likes[commentID] == nil {
		f.likes[commentID] = map[string]bool{}
	}
	liked := !f.likes[commentID][userID]
	if liked {
		f.likes[commentID][userID] = true
		c.Likes++
	} else {
		delete(f.likes[commentID], userID)
		c.Likes--
	}
	return liked, c.Likes, nil
}

func (f *fakeComments) HasUserLikedComment(commentID uint, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[commentID][userID], nil
}

type fakeNotifications struct {
	mu     sync.Mutex
	nextID uint
	items  []models.Notification
}

func (f *fakeNotifications) CreateNotification(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = f.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotifications) forUser(uid string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Notification{}
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].ToUserID == uid {
			out = append(out, f.items[i])
		}
	}
	return out
}

func (f *fakeNotifications) GetByRecipientID(uid string, page, limit int) ([]models.Notification, int64, error) {
	all := f.forUser(uid)
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Notification{}, int64(len(all)), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (f *fakeNotifications) GetGrouped(uid string) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error) {
	return f.forUser(uid), nil, nil, nil, nil
}

func (f *fakeNotifications) GetUnreadCount(uid string) (int64, error) {
	var n int64
	for _, item := range f.forUser(uid) {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkAsRead(id uint, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].ToUserID == uid {
			f.items[i].Read = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

func (f *fakeNotifications) MarkAllAsRead(uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ToUserID == uid {
			f.items[i].Read = true
		}
	}
	return nil
}

var (
	_ repositories.PostRepository         = (*fakePosts)(nil)
	_ repositories.UserRepository         = (*fakeUsers)(nil)
	_ repositories.CommentRepository      = (*fakeComments)(nil)
	_ repositories.CommentLikeRepository  = (*fakeComments)(nil)
	_ repositories.NotificationRepository = (*fakeNotifications)(nil)
)
