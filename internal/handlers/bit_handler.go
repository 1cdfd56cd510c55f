package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BitHandler serves the private bit drafts of the signed-in user.
type BitHandler struct {
	bitRepository  repositories.BitRepository
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
}

// NewBitHandler creates a new BitHandler
func NewBitHandler(bitRepo repositories.BitRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository) *BitHandler {
	return &BitHandler{bitRepository: bitRepo, postRepository: postRepo, userRepository: userRepo}
}

// RegisterBitRoutes registers bit routes
func (h *BitHandler) RegisterBitRoutes(g *echo.Group) {
	g.GET("/bits", h.ListBits)
	g.POST("/bits", h.CreateBit)
	g.GET("/bits/:id", h.GetBit)
	g.PUT("/bits/:id", h.UpdateBit)
	g.DELETE("/bits/:id", h.DeleteBit)
	g.POST("/bits/:id/share", h.ShareBit)
}

// ListBits returns the caller's bits filtered by ?q= and ordered by ?sort=date|title
func (h *BitHandler) ListBits(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	bits, err := h.bitRepository.GetBitsByUserID(s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	bits = FilterBits(bits, c.QueryParam("q"))
	switch c.QueryParam("sort") {
	case "", "date":
		sort.SliceStable(bits, func(i, j int) bool { return bits[i].CreatedAt.After(bits[j].CreatedAt) })
	case "title":
		SortBitsByTitle(bits)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "sort must be date or title")
	}
	return respond(c, http.StatusOK, bits)
}

// FilterBits keeps the bits whose title, content or any tag contains term,
// case-insensitively. An empty term keeps everything.
func FilterBits(bits []models.Bit, term string) []models.Bit {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return bits
	}
	out := make([]models.Bit, 0, len(bits))
	for _, b := range bits {
		if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.Content), term) {
			out = append(out, b)
			continue
		}
		for _, tag := range b.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// SortBitsByTitle orders bits by title using locale-aware collation.
func SortBitsByTitle(bits []models.Bit) {
	col := collate.New(language.English, collate.Loose)
	sort.SliceStable(bits, func(i, j int) bool {
		return col.CompareString(bits[i].Title, bits[j].Title) < 0
	})
}

// CreateBit saves a new draft
func (h *BitHandler) CreateBit(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	var req models.BitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	bit := &models.Bit{
		UserID:  s.UserID,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
		Tags:    models.NormalizeTags(req.Tags),
	}
	if err := h.bitRepository.CreateBit(bit); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, bit)
}

// GetBit returns one of the caller's bits
func (h *BitHandler) GetBit(c echo.Context) error {
	bit, err := h.ownedBit(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, bit)
}

// UpdateBit replaces the title, content and tags of a bit
func (h *BitHandler) UpdateBit(c echo.Context) error {
	bit, err := h.ownedBit(c)
	if err != nil {
		return err
	}
	var req models.BitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	bit.Title = strings.TrimSpace(req.Title)
	bit.Content = req.Content
	bit.Tags = models.NormalizeTags(req.Tags)
	if err := h.bitRepository.UpdateBit(bit); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, bit)
}

// DeleteBit removes a bit
func (h *BitHandler) DeleteBit(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.bitRepository.DeleteBit(id, s.UserID); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ShareBit publishes the bit to the feed as a new post. The draft is kept.
func (h *BitHandler) ShareBit(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	bit, err := h.ownedBit(c)
	if err != nil {
		return err
	}
	content := strings.TrimSpace(bit.Title)
	if body := strings.TrimSpace(bit.Content); body != "" {
		content += "\n\n" + body
	}

	name, photo := author(h.userRepository, s.UserID, s.Email)
	post := &models.Post{
		Content:     content,
		AuthorID:    s.UserID,
		AuthorName:  name,
		AuthorPhoto: photo,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, post)
}

func (h *BitHandler) ownedBit(c echo.Context) (*models.Bit, error) {
	s, err := session.Require(c)
	if err != nil {
		return nil, err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return nil, err
	}
	bit, err := h.bitRepository.GetBit(id, s.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return bit, nil
}
