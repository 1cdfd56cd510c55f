package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := Require(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)

	Set(c, &Session{})
	_, ok := From(c)
	assert.False(t, ok)

	Set(c, &Session{UserID: "u1", Email: "a@b.c"})
	s, err := Require(c)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
}
