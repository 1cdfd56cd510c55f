package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, uid string, key string, ttl time.Duration) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UID:   uid,
		Email: uid + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

type fakeVerifier struct {
	tokens map[string]string
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@firebase.test"}}, nil
}

func run(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *session.Session, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var got *session.Session
	err := mw(func(c echo.Context) error {
		got, _ = session.From(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestJWTAuthMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "u1", secret, time.Hour))
	_, s, err := run(JWTAuthMiddleware(secret), req)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "u1@example.com", s.Email)

	req = httptest.NewRequest(http.MethodGet, "/ws?token="+sign(t, "u2", secret, time.Hour), nil)
	_, s, err = run(JWTAuthMiddleware(secret), req)
	require.NoError(t, err)
	assert.Equal(t, "u2", s.UserID)

	cases := map[string]string{
		"missing":  "",
		"format":   "Token abc",
		"wrongkey": "Bearer " + sign(t, "u1", "other", time.Hour),
		"expired":  "Bearer " + sign(t, "u1", secret, -time.Hour),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		_, _, err := run(JWTAuthMiddleware(secret), req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(err), name)
	}
}

func TestAuthenticateFallsBackToFirebase(t *testing.T) {
	v := fakeVerifier{tokens: map[string]string{"fb-token": "fb-user"}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer fb-token")
	_, s, err := run(Authenticate(secret, v), req)
	require.NoError(t, err)
	assert.Equal(t, "fb-user", s.UserID)
	assert.Equal(t, "fb-user@firebase.test", s.Email)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "local", secret, time.Hour))
	_, s, err = run(Authenticate(secret, v), req)
	require.NoError(t, err)
	assert.Equal(t, "local", s.UserID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	_, _, err = run(Authenticate(secret, nil), req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

type users map[string]*models.User

func (u users) GetUserByUID(uid string) (*models.User, error) {
	if user, ok := u[uid]; ok {
		return user, nil
	}
	return nil, repositories.ErrUserNotFound
}

func TestAdminOnly(t *testing.T) {
	store := users{
		"admin":    {UID: "admin", IsAdmin: true},
		"plain":    {UID: "plain"},
		"disabled": {UID: "disabled", IsAdmin: true, Disabled: true},
	}
	allow := func(email string) bool { return email == "boss@example.com" }

	check := func(s *session.Session) error {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if s != nil {
			session.Set(c, s)
		}
		return AdminOnly(store, allow)(func(c echo.Context) error { return nil })(c)
	}

	assert.NoError(t, check(&session.Session{UserID: "admin"}))
	assert.NoError(t, check(&session.Session{UserID: "unknown", Email: "boss@example.com"}))
	assert.Equal(t, http.StatusForbidden, statusOf(check(&session.Session{UserID: "plain"})))
	assert.Equal(t, http.StatusForbidden, statusOf(check(&session.Session{UserID: "disabled"})))
	assert.Equal(t, http.StatusForbidden, statusOf(check(&session.Session{UserID: "ghost"})))
	assert.Equal(t, http.StatusUnauthorized, statusOf(check(nil)))
}
