package middleware

import (
	"errors"
	"net/http"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// UserLookup is the part of the user repository the admin guard needs.
type UserLookup interface {
	GetUserByUID(uid string) (*models.User, error)
}

// AdminOnly lets through users flagged as admin or whose email is allow-listed.
func AdminOnly(users UserLookup, isAdminEmail func(string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := session.Require(c)
			if err != nil {
				return err
			}
			if isAdminEmail != nil && isAdminEmail(s.Email) {
				return next(c)
			}
			user, err := users.GetUserByUID(s.UserID)
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusForbidden, "You don't have permission to access this page")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			if !user.IsAdmin || user.Disabled {
				return echo.NewHTTPError(http.StatusForbidden, "You don't have permission to access this page")
			}
			return next(c)
		}
	}
}
