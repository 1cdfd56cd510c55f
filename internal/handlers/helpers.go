package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// bindAndValidate decodes the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func uintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func intQuery(c echo.Context, name string, def, max int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// storeError maps repository sentinels onto HTTP statuses.
func storeError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrPostNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	case errors.Is(err, repositories.ErrCommentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	case errors.Is(err, repositories.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	case errors.Is(err, repositories.ErrNotificationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	case errors.Is(err, repositories.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// author resolves the display fields stamped onto posts, comments and notifications.
// A missing profile falls back to the email local part.
func author(users repositories.UserRepository, uid, email string) (name, photo string) {
	if users != nil {
		if u, err := users.GetUserByUID(uid); err == nil {
			return u.DisplayName(), u.PhotoURL
		}
	}
	if local := models.EmailLocalPart(email); local != "" {
		return local, ""
	}
	return "Anonymous", ""
}
