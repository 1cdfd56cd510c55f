package handlers

import (
	"net/http"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LikeHandler handles HTTP requests related to post likes
type LikeHandler struct {
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	logger                 *zap.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository, logger *zap.Logger) *LikeHandler {
	return &LikeHandler{
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		logger:                 logger,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
	g.GET("/posts/:id/like", h.GetLikeStatus)
}

// ToggleLike likes the post, or unlikes it if the caller already did. The response
// carries the stored counter and like set after the write.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	post, liked, err := h.postRepository.ToggleLike(c.Request().Context(), c.Param("id"), s.UserID)
	if err != nil {
		return storeError(err)
	}

	if liked {
		name, _ := author(h.userRepository, s.UserID, s.Email)
		notifyAuthor(h.notificationRepository, h.logger, models.NotificationLike, post, s.UserID, name)
	}

	return respond(c, http.StatusOK, models.LikeResult{
		PostID:  post.ID.Hex(),
		Liked:   liked,
		Likes:   post.Likes,
		LikedBy: post.LikedBy,
	})
}

// GetLikeStatus reports whether the caller likes the post
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err)
	}

	return respond(c, http.StatusOK, models.LikeResult{
		PostID:  post.ID.Hex(),
		Liked:   post.LikedByUser(s.UserID),
		Likes:   post.Likes,
		LikedBy: post.LikedBy,
	})
}
