package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FeedbackHandler accepts user feedback. Mail delivery happens in the notifier.
type FeedbackHandler struct {
	feedbackRepository repositories.FeedbackRepository
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(feedbackRepo repositories.FeedbackRepository) *FeedbackHandler {
	return &FeedbackHandler{feedbackRepository: feedbackRepo}
}

// RegisterFeedbackRoutes registers feedback routes
func (h *FeedbackHandler) RegisterFeedbackRoutes(g *echo.Group) {
	g.POST("/feedback", h.SubmitFeedback)
}

func (h *FeedbackHandler) SubmitFeedback(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	var req models.FeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	fb := &models.Feedback{UserID: s.UserID, UserEmail: s.Email, Message: message}
	if err := h.feedbackRepository.CreateFeedback(c.Request().Context(), fb); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, echo.Map{"id": fb.ID})
}
