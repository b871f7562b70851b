package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// MessageHandler handles messaging HTTP requests
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// RegisterMessageRoutes registers message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages/:userId", h.SendMessage)
	g.GET("/messages/:userId", h.ListMessages)
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.SendMessage(c.Request().Context(), callerID, c.Param("userId"), req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, msg)
}

func (h *MessageHandler) ListMessages(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	msgs, err := h.messages.ListMessages(c.Request().Context(), callerID, c.Param("userId"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, msgs)
}
