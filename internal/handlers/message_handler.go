package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// MessageHandler serves direct messages
type MessageHandler struct {
	messageRepository repositories.MessageRepository
	userRepository    repositories.UserRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository) *MessageHandler {
	return &MessageHandler{messageRepository: messageRepo, userRepository: userRepo}
}

// RegisterMessageRoutes registers message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.SendMessage)
	g.GET("/messages/inbox", h.Inbox)
	g.GET("/messages/sent", h.Sent)
	g.PUT("/messages/:id/read", h.MarkAsRead)
}

// SendMessage delivers a message to an existing user
func (h *MessageHandler) SendMessage(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if req.RecipientID == s.UserID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot message yourself")
	}
	recipient, err := h.userRepository.GetUserByUID(req.RecipientID)
	if err != nil {
		return storeError(err)
	}

	senderName, _ := author(h.userRepository, s.UserID, s.Email)
	msg := &models.Message{
		Content:       content,
		SenderID:      s.UserID,
		SenderName:    senderName,
		RecipientID:   recipient.UID,
		RecipientName: recipient.DisplayName(),
	}
	if err := h.messageRepository.CreateMessage(msg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusCreated, msg)
}

func (h *MessageHandler) Inbox(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	msgs, err := h.messageRepository.GetInbox(s.UserID, intQuery(c, "limit", 50, 200))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, msgs)
}

func (h *MessageHandler) Sent(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	msgs, err := h.messageRepository.GetSent(s.UserID, intQuery(c, "limit", 50, 200))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, msgs)
}

// MarkAsRead marks a received message as read
func (h *MessageHandler) MarkAsRead(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.messageRepository.MarkAsRead(id, s.UserID); err != nil {
		return storeError(err)
	}
	return respond(c, http.StatusOK, echo.Map{"success": true})
}
