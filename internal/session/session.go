// Package session carries the authenticated identity through a request.
package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const contextKey = "session"

// Session is the caller's identity, set by the auth middleware.
type Session struct {
	UserID string
	Email  string
}

// Set attaches s to the request context.
func Set(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}

// From returns the session, if any.
func From(c echo.Context) (*Session, bool) {
	s, ok := c.Get(contextKey).(*Session)
	return s, ok && s != nil && s.UserID != ""
}

// Require returns the session or a 401.
func Require(c echo.Context) (*Session, error) {
	s, ok := From(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
	}
	return s, nil
}
