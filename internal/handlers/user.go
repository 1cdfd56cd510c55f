package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// profilePostsLimit caps the posts shown on a public profile.
const profilePostsLimit = 50

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
	postRepository repositories.PostRepository
	media          repositories.MediaStore
	logger         *zap.Logger
	now            func() time.Time
}

// NewUserHandler creates a new UserHandler. media may be nil when storage is not
// configured.
func NewUserHandler(userRepo repositories.UserRepository, postRepo repositories.PostRepository, media repositories.MediaStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		postRepository: postRepo,
		media:          media,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/profile/photo", h.UploadPhoto)
	g.DELETE("/profile", h.DeleteUser)
	g.GET("/users", h.SearchUsers)
	g.GET("/users/:uid", h.GetUser)
}

// PublicProfileResponse is another user's profile with their posts newest first.
type PublicProfileResponse struct {
	Profile models.PublicProfile `json:"profile"`
	Posts   []models.Post        `json:"posts"`
}

// GetUser returns a public profile and the user's posts
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userRepository.GetUserByUID(c.Param("uid"))
	if err != nil {
		return storeError(err)
	}
	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), user.UID, profilePostsLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, PublicProfileResponse{Profile: user.PublicProfile(), Posts: posts})
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByUID(s.UserID)
	if err != nil {
		return storeError(err)
	}
	return respond(c, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile. A first save creates the
// profile for identities that signed in through Firebase without one.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByUID(s.UserID)
	create := false
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		user = &models.User{UID: s.UserID, Email: strings.ToLower(s.Email)}
		create = true
	}

	user.Username = req.Username
	user.Bio = strings.TrimSpace(req.Bio)
	user.SocialLinks = req.SocialLinks

	if create {
		err = h.userRepository.CreateUser(user)
	} else {
		err = h.userRepository.UpdateUser(user)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusOK, user)
}

// UploadPhoto replaces the profile picture with the multipart "photo" image
func (h *UserHandler) UploadPhoto(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	if h.media == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage is not configured")
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "photo is required")
	}
	user, err := h.userRepository.GetUserByUID(s.UserID)
	if err != nil {
		return storeError(err)
	}

	objectPath := path.Join("profile_pictures", s.UserID, fmt.Sprintf("%d_%s", h.now().UnixMilli(), safeName(fh.Filename)))
	uploaded, err := uploadFile(c, h.media, h.logger, fh, objectPath, false)
	if err != nil {
		return err
	}

	user.PhotoURL = uploaded.URL
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, user)
}

// DeleteUser deletes the authenticated user's profile
func (h *UserHandler) DeleteUser(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	if err := h.userRepository.DeleteUser(s.UserID); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches for users by username or email and returns public profiles
// sorted by display name
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	users, err := h.userRepository.SearchUsers(query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		if users[i].Disabled {
			continue
		}
		out = append(out, users[i].PublicProfile())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return respond(c, http.StatusOK, out)
}
