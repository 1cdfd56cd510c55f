package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// IdeaHandler serves the idea bank
type IdeaHandler struct {
	ideaRepository repositories.IdeaRepository
}

// NewIdeaHandler creates a new IdeaHandler
func NewIdeaHandler(ideaRepo repositories.IdeaRepository) *IdeaHandler {
	return &IdeaHandler{ideaRepository: ideaRepo}
}

// RegisterIdeaRoutes registers idea routes
func (h *IdeaHandler) RegisterIdeaRoutes(g *echo.Group) {
	g.GET("/ideas", h.ListIdeas)
	g.POST("/ideas", h.CreateIdea)
	g.PUT("/ideas/:id", h.UpdateIdea)
	g.DELETE("/ideas/:id", h.DeleteIdea)
}

func (h *IdeaHandler) ListIdeas(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	ideas, err := h.ideaRepository.GetIdeasByUserID(s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, ideas)
}

func (h *IdeaHandler) CreateIdea(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	var req models.IdeaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	idea := &models.Idea{
		UserID:      s.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Tags:        models.NormalizeTags(req.Tags),
	}
	if err := h.ideaRepository.CreateIdea(idea); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, idea)
}

func (h *IdeaHandler) UpdateIdea(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.IdeaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	idea, err := h.ideaRepository.GetIdea(id, s.UserID)
	if err != nil {
		return storeError(err)
	}
	idea.Title = strings.TrimSpace(req.Title)
	idea.Description = req.Description
	idea.Tags = models.NormalizeTags(req.Tags)
	if err := h.ideaRepository.UpdateIdea(idea); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, idea)
}

func (h *IdeaHandler) DeleteIdea(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.ideaRepository.DeleteIdea(id, s.UserID); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
