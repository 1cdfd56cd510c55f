package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// JournalHandler serves journal entries
type JournalHandler struct {
	journalRepository repositories.JournalRepository
	now               func() time.Time
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journalRepo repositories.JournalRepository) *JournalHandler {
	return &JournalHandler{journalRepository: journalRepo, now: time.Now}
}

// RegisterJournalRoutes registers journal routes
func (h *JournalHandler) RegisterJournalRoutes(g *echo.Group) {
	g.GET("/journal", h.ListEntries)
	g.POST("/journal", h.CreateEntry)
	g.PUT("/journal/:id", h.UpdateEntry)
	g.DELETE("/journal/:id", h.DeleteEntry)
}

// JournalEntryView adds a relative age to an entry.
type JournalEntryView struct {
	models.JournalEntry
	TimeAgo string `json:"timeAgo"`
}

// ListEntries returns the caller's entries newest first
func (h *JournalHandler) ListEntries(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	entries, err := h.journalRepository.GetEntriesByUserID(s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	now := h.now()
	views := make([]JournalEntryView, len(entries))
	for i, e := range entries {
		views[i] = JournalEntryView{JournalEntry: e, TimeAgo: humanize.RelTime(e.CreatedAt, now, "ago", "from now")}
	}
	return respond(c, http.StatusOK, views)
}

func (h *JournalHandler) CreateEntry(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	var req models.JournalEntryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	entry := &models.JournalEntry{UserID: s.UserID, Content: content}
	if err := h.journalRepository.CreateEntry(entry); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, entry)
}

func (h *JournalHandler) UpdateEntry(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.JournalEntryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.journalRepository.GetEntry(id, s.UserID)
	if err != nil {
		return storeError(err)
	}
	entry.Content = strings.TrimSpace(req.Content)
	if err := h.journalRepository.UpdateEntry(entry); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, entry)
}

func (h *JournalHandler) DeleteEntry(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.journalRepository.DeleteEntry(id, s.UserID); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
