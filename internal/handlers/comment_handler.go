package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CommentCountSyncer recomputes a post's comments counter from the stored rows.
type CommentCountSyncer interface {
	ResyncPost(ctx context.Context, postID string) (int64, error)
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository      repositories.CommentRepository
	commentLikeRepository  repositories.CommentLikeRepository
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	counts                 CommentCountSyncer
	logger                 *zap.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	commentLikeRepo repositories.CommentLikeRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifRepo repositories.NotificationRepository,
	counts CommentCountSyncer,
	logger *zap.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentRepository:      commentRepo,
		commentLikeRepository:  commentLikeRepo,
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		counts:                 counts,
		logger:                 logger,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
	g.POST("/comments/:id/like", h.ToggleCommentLike)
}

// CreateComment adds a comment or a reply. Replies to replies attach to the thread root
// and remember whom they answered.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	postID := c.Param("post_id")

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return storeError(err)
	}

	name, photo := author(h.userRepository, s.UserID, s.Email)
	comment := &models.Comment{
		PostID:      postID,
		Content:     content,
		AuthorID:    s.UserID,
		AuthorName:  name,
		AuthorPhoto: photo,
		LikedBy:     []string{},
	}

	if req.ParentID != nil {
		parent, err := h.commentRepository.GetCommentByID(*req.ParentID)
		if err != nil {
			return storeError(err)
		}
		if parent.PostID != postID {
			return echo.NewHTTPError(http.StatusBadRequest, "Parent comment belongs to another post")
		}
		rootID := parent.ID
		if parent.ParentID != nil {
			rootID = *parent.ParentID
		}
		replyTo := parent.AuthorName
		comment.ParentID = &rootID
		comment.ReplyToName = &replyTo
	}

	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.resync(c.Request().Context(), postID)
	notifyAuthor(h.notificationRepository, h.logger, models.NotificationComment, post, s.UserID, name)

	return respond(c, http.StatusCreated, comment)
}

// GetCommentsByPostID lists a post's comments oldest first and refreshes its counter
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	postID := c.Param("post_id")

	comments, err := h.commentRepository.GetCommentsByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.resync(c.Request().Context(), postID)

	return respond(c, http.StatusOK, comments)
}

// UpdateComment edits the caller's own comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	comment, err := h.commentRepository.GetCommentByID(id)
	if err != nil {
		return storeError(err)
	}
	if comment.AuthorID != s.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this comment")
	}

	comment.Content = content
	if err := h.commentRepository.UpdateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusOK, comment)
}

// DeleteComment removes the caller's own comment together with its replies
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	comment, err := h.commentRepository.GetCommentByID(id)
	if err != nil {
		return storeError(err)
	}
	if comment.AuthorID != s.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.commentRepository.DeleteCommentWithReplies(id); err != nil {
		return storeError(err)
	}
	h.resync(c.Request().Context(), comment.PostID)

	return c.NoContent(http.StatusNoContent)
}

// ToggleCommentLike likes or unlikes a comment
func (h *CommentHandler) ToggleCommentLike(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	liked, likes, err := h.commentLikeRepository.ToggleCommentLike(id, s.UserID)
	if err != nil {
		return storeError(err)
	}

	return respond(c, http.StatusOK, echo.Map{
		"commentId": id,
		"liked":     liked,
		"likes":     likes,
	})
}

// resync refreshes the post's counter; failures only cost freshness.
func (h *CommentHandler) resync(ctx context.Context, postID string) {
	if h.counts == nil {
		return
	}
	if _, err := h.counts.ResyncPost(ctx, postID); err != nil {
		h.logger.Warn("failed to resync comment count", zap.String("postId", postID), zap.Error(err))
	}
}
