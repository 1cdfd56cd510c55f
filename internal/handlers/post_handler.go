package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	commentRepository repositories.CommentRepository
	logger            *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, commentRepo repositories.CommentRepository, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		userRepository:    userRepo,
		commentRepository: commentRepo,
		logger:            logger,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/posts", h.GetPosts) // all posts, or one author's with ?user_id=
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a new post from text and/or uploaded media URLs
func (h *PostHandler) CreatePost(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.MediaURLs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "A post needs text or media")
	}
	if len(req.MediaTypes) != len(req.MediaURLs) {
		return echo.NewHTTPError(http.StatusBadRequest, "mediaTypes must match mediaUrls")
	}

	name, photo := author(h.userRepository, s.UserID, s.Email)
	post := &models.Post{
		Content:     content,
		AuthorID:    s.UserID,
		AuthorName:  name,
		AuthorPhoto: photo,
		MediaURLs:   req.MediaURLs,
		MediaTypes:  req.MediaTypes,
	}

	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusCreated, post)
}

// GetPost retrieves a post by ID; deep links resolve through here
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err)
	}
	return respond(c, http.StatusOK, post)
}

// GetPosts retrieves multiple posts newest first
func (h *PostHandler) GetPosts(c echo.Context) error {
	userID := c.QueryParam("user_id")
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	limit := int64(intQuery(c, "limit", 10, 100))

	var posts []models.Post
	var err error
	if userID != "" {
		posts, err = h.postRepository.GetPostsByUserID(c.Request().Context(), userID, limit)
	} else {
		posts, err = h.postRepository.GetAllPosts(c.Request().Context(), skip, limit)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusOK, posts)
}

// UpdatePost replaces the text of the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	existing, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return storeError(err)
	}
	if existing.AuthorID != s.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	updated, err := h.postRepository.UpdatePostContent(c.Request().Context(), postID, content)
	if err != nil {
		return storeError(err)
	}
	return respond(c, http.StatusOK, updated)
}

// DeletePost deletes the caller's own post and, best effort, its comments
func (h *PostHandler) DeletePost(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	postID := c.Param("id")

	existing, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return storeError(err)
	}
	if existing.AuthorID != s.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID); err != nil {
		return storeError(err)
	}
	if h.commentRepository != nil {
		if err := h.commentRepository.DeleteCommentsByPostID(postID); err != nil {
			h.logger.Warn("failed to delete comments of deleted post", zap.String("postId", postID), zap.Error(err))
		}
	}

	return c.NoContent(http.StatusNoContent)
}
