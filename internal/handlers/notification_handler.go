package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifier *services.Notifier
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/stream", h.StreamNotifications)
	g.DELETE("/notifications/:id", h.DismissNotification)
}

// GetNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	notifications, err := h.notifier.List(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"notifications": notifications})
}

// DismissNotification deletes one of the caller's notifications
func (h *NotificationHandler) DismissNotification(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	if err := h.notifier.Dismiss(c.Request().Context(), callerID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StreamNotifications pushes the caller's notification list as server-sent
// events until the client disconnects.
func (h *NotificationHandler) StreamNotifications(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	updates, err := h.notifier.Watch(ctx, callerID)
	if err != nil {
		return respondError(err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	current, err := h.notifier.List(ctx, callerID)
	if err != nil {
		return nil
	}
	for {
		payload, err := json.Marshal(current)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "event: notifications\ndata: %s\n\n", payload); err != nil {
			return nil
		}
		res.Flush()

		var open bool
		if current, open = <-updates; !open {
			return nil
		}
	}
}
