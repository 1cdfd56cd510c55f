package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type storedObject struct {
	path, contentType string
	data              []byte
}

type fakeMediaStore struct {
	mu      sync.Mutex
	objects []storedObject
}

func (f *fakeMediaStore) Upload(_ context.Context, path, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, storedObject{path: path, contentType: contentType, data: data})
	return "https://storage.test/" + path, nil
}

func (f *fakeMediaStore) Delete(context.Context, string) error { return nil }

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target, uid string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("X-Test-User", uid)
	return req
}

func TestUploadMedia(t *testing.T) {
	store := &fakeMediaStore{}
	h := NewMediaHandler(store, zap.NewNop())
	h.now = func() time.Time { return time.UnixMilli(1700000000123) }
	e, g := newTestEcho()
	h.RegisterMediaRoutes(g)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "/api/media", "alice", upload{"files", "my cat.png", pngBytes}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got []UploadedMedia
	decodeData(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, models.MediaImage, got[0].Type)
	assert.Equal(t, "https://storage.test/posts/alice/1700000000123_my_cat.png", got[0].URL)

	require.Len(t, store.objects, 1)
	assert.Equal(t, "image/png", store.objects[0].contentType)
	assert.Equal(t, pngBytes, store.objects[0].data, "the sniffed bytes must still be uploaded")
}

func TestUploadMediaRejects(t *testing.T) {
	store := &fakeMediaStore{}
	e, g := newTestEcho()
	NewMediaHandler(store, zap.NewNop()).RegisterMediaRoutes(g)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "/api/media", "alice", upload{"files", "notes.txt", []byte("just some text")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var five []upload
	for i := 0; i < 5; i++ {
		five = append(five, upload{"files", "p.png", pngBytes})
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "/api/media", "alice", five...))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.objects)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b.png", safeName("a b.png"))
	assert.Equal(t, "passwd", safeName("../../etc/passwd"))
	assert.Equal(t, "upload", safeName(""))
}

func TestProfilePhotoAndPublicProfile(t *testing.T) {
	store := &fakeMediaStore{}
	users := newFakeUsers(models.User{UID: "alice", Username: "alice", Email: "alice@example.com"})
	posts := newFakePosts()
	posts.add("alice", "first")
	posts.add("bob", "other")
	e, g := newTestEcho()
	NewUserHandler(users, posts, store, zap.NewNop()).RegisterProfileRoutes(g)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "/api/profile/photo", "alice", upload{"photo", "me.png", pngBytes}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u, _ := users.GetUserByUID("alice")
	assert.True(t, strings.HasPrefix(u.PhotoURL, "https://storage.test/profile_pictures/alice/"))

	rec = do(t, e, http.MethodGet, "/api/users/alice", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile PublicProfileResponse
	decodeData(t, rec, &profile)
	assert.Equal(t, "alice", profile.Profile.Username)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, "first", profile.Posts[0].Content)
	assert.NotContains(t, rec.Body.String(), "alice@example.com")
}

func TestUpdateProfile(t *testing.T) {
	users := newFakeUsers(models.User{UID: "alice", Username: "alice"})
	e, g := newTestEcho()
	NewUserHandler(users, newFakePosts(), nil, zap.NewNop()).RegisterProfileRoutes(g)

	rec := do(t, e, http.MethodPut, "/api/profile", "alice", models.UpdateProfileRequest{
		Username: "alice.codes", Bio: "  stand-up  ",
		SocialLinks: models.SocialLinks{Twitter: "https://twitter.com/alice"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u, _ := users.GetUserByUID("alice")
	assert.Equal(t, "alice.codes", u.Username)
	assert.Equal(t, "stand-up", u.Bio)

	rec = do(t, e, http.MethodPut, "/api/profile", "alice", models.UpdateProfileRequest{Username: "no spaces allowed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPut, "/api/profile", "alice", models.UpdateProfileRequest{
		Username: "alice", SocialLinks: models.SocialLinks{Facebook: "not a url"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// first save creates the profile
	rec = do(t, e, http.MethodPut, "/api/profile", "newbie", models.UpdateProfileRequest{Username: "newbie"})
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := users.GetUserByUID("newbie")
	assert.NoError(t, err)
}
