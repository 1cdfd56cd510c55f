package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PasswordResetter mails a password reset link.
type PasswordResetter interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// AdminHandler serves the admin portal. Routes are mounted behind AdminOnly.
type AdminHandler struct {
	userRepository     repositories.UserRepository
	postRepository     repositories.PostRepository
	commentRepository  repositories.CommentRepository
	exerciseRepository repositories.ExerciseRepository
	feedbackRepository repositories.FeedbackRepository
	resetter           PasswordResetter
	logger             *zap.Logger
}

// NewAdminHandler creates a new AdminHandler. feedbackRepo and resetter may be nil.
func NewAdminHandler(
	userRepo repositories.UserRepository,
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	exerciseRepo repositories.ExerciseRepository,
	feedbackRepo repositories.FeedbackRepository,
	resetter PasswordResetter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		userRepository:     userRepo,
		postRepository:     postRepo,
		commentRepository:  commentRepo,
		exerciseRepository: exerciseRepo,
		feedbackRepository: feedbackRepo,
		resetter:           resetter,
		logger:             logger,
	}
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/users", h.ListUsers)
	g.POST("/users/:uid/toggle-disabled", h.ToggleDisabled)
	g.POST("/users/:uid/toggle-admin", h.ToggleAdmin)
	g.DELETE("/users/:uid", h.DeleteUser)
	g.DELETE("/users/:uid/posts", h.DeleteUserPosts)
	g.POST("/users/:uid/password-reset", h.ResetPassword)
	g.POST("/exercises", h.AddExercise)
	g.POST("/exercises/seed", h.SeedExercises)
	g.GET("/posts", h.ListPosts)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/feedback", h.ListFeedback)
}

// ListUsers returns every profile sorted by display name
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.userRepository.GetUsers()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName()) < strings.ToLower(users[j].DisplayName())
	})
	return respond(c, http.StatusOK, users)
}

func (h *AdminHandler) ToggleDisabled(c echo.Context) error {
	return h.toggle(c, func(u *models.User) { u.Disabled = !u.Disabled })
}

func (h *AdminHandler) ToggleAdmin(c echo.Context) error {
	return h.toggle(c, func(u *models.User) { u.IsAdmin = !u.IsAdmin })
}

func (h *AdminHandler) toggle(c echo.Context, flip func(*models.User)) error {
	user, err := h.userRepository.GetUserByUID(c.Param("uid"))
	if err != nil {
		return storeError(err)
	}
	flip(user)
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, user)
}

// DeleteUser removes the profile only; the user's posts stay until deleted separately
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if err := h.userRepository.DeleteUser(c.Param("uid")); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUserPosts removes every post of a user and their comments
func (h *AdminHandler) DeleteUserPosts(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")
	deleted := 0
	for {
		posts, err := h.postRepository.GetPostsByUserID(ctx, uid, 100)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(posts) == 0 {
			break
		}
		for _, p := range posts {
			if err := h.deletePost(ctx, p.ID.Hex()); err != nil {
				return storeError(err)
			}
			deleted++
		}
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": deleted})
}

// ResetPassword mails a reset link to the user's address
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	if h.resetter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Password reset is not configured")
	}
	user, err := h.userRepository.GetUserByUID(c.Param("uid"))
	if err != nil {
		return storeError(err)
	}
	if user.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "User has no email address")
	}
	if err := h.resetter.SendPasswordReset(c.Request().Context(), user.Email); err != nil {
		h.logger.Warn("admin password reset failed", zap.String("uid", user.UID), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to send reset email")
	}
	return respond(c, http.StatusOK, echo.Map{"sent": true})
}

func (h *AdminHandler) AddExercise(c echo.Context) error {
	var req models.ExerciseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	exercise := &models.Exercise{Title: title}
	if err := h.exerciseRepository.CreateExercise(exercise); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, exercise)
}

// SeedExercises inserts the default prompts that are missing
func (h *AdminHandler) SeedExercises(c echo.Context) error {
	added, err := h.exerciseRepository.SeedExercises(models.DefaultExercises)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, echo.Map{"added": added})
}

func (h *AdminHandler) ListPosts(c echo.Context) error {
	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), 0, int64(intQuery(c, "limit", 100, 500)))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, posts)
}

// DeletePost removes any post
func (h *AdminHandler) DeletePost(c echo.Context) error {
	if err := h.deletePost(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) deletePost(ctx context.Context, id string) error {
	if err := h.postRepository.DeletePost(ctx, id); err != nil {
		return err
	}
	if err := h.commentRepository.DeleteCommentsByPostID(id); err != nil {
		h.logger.Warn("failed to delete comments of deleted post", zap.String("postId", id), zap.Error(err))
	}
	return nil
}

func (h *AdminHandler) ListFeedback(c echo.Context) error {
	if h.feedbackRepository == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Feedback store is not configured")
	}
	items, err := h.feedbackRepository.ListFeedback(c.Request().Context(), intQuery(c, "limit", 100, 500))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, items)
}
