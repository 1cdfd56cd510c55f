package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	now                    func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
		now:                    time.Now,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// EnrichedNotification includes the actor's photo and display text
type EnrichedNotification struct {
	models.Notification
	FromUserPhoto string `json:"fromUserPhoto,omitempty"`
	Message       string `json:"message"`
	TimeAgo       string `json:"timeAgo"`
}

func notificationMessage(n models.Notification) string {
	name := n.FromUserName
	if name == "" {
		name = "Someone"
	}
	switch n.Type {
	case models.NotificationLike:
		return name + " liked your post"
	case models.NotificationComment:
		return name + " commented on your post"
	default:
		return name + " interacted with your post"
	}
}

func (h *NotificationHandler) enrichNotifications(notifications []models.Notification) []EnrichedNotification {
	enriched := make([]EnrichedNotification, len(notifications))
	photos := make(map[string]string)
	now := h.now()

	for i, n := range notifications {
		enriched[i] = EnrichedNotification{
			Notification: n,
			Message:      notificationMessage(n),
			TimeAgo:      humanize.RelTime(n.CreatedAt, now, "ago", "from now"),
		}
		photo, ok := photos[n.FromUserID]
		if !ok {
			if user, err := h.userRepository.GetUserByUID(n.FromUserID); err == nil {
				photo = user.PhotoURL
			}
			photos[n.FromUserID] = photo
		}
		enriched[i].FromUserPhoto = photo
	}
	return enriched
}

// GetNotifications returns paginated notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	page := intQuery(c, "page", 1, 0)
	limit := intQuery(c, "limit", 20, 50)

	notifications, total, err := h.notificationRepository.GetByRecipientID(s.UserID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": h.enrichNotifications(notifications),
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetGroupedNotifications returns notifications grouped by time period
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	today, yesterday, thisWeek, older, err := h.notificationRepository.GetGrouped(s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	unreadCount, _ := h.notificationRepository.GetUnreadCount(s.UserID)

	return respond(c, http.StatusOK, echo.Map{
		"notifications": echo.Map{
			"today":     h.enrichNotifications(today),
			"yesterday": h.enrichNotifications(yesterday),
			"thisWeek":  h.enrichNotifications(thisWeek),
			"older":     h.enrichNotifications(older),
		},
		"unreadCount": unreadCount,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	count, err := h.notificationRepository.GetUnreadCount(s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notificationRepository.MarkAsRead(uint(notifID), s.UserID); err != nil {
		return storeError(err)
	}

	return respond(c, http.StatusOK, echo.Map{"success": true})
}

// MarkAllAsRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}

	if err := h.notificationRepository.MarkAllAsRead(s.UserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, http.StatusOK, echo.Map{"success": true})
}
