package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationLister reads a recipient's notifications
type NotificationLister interface {
	ListFor(ctx context.Context, recipientID uint) ([]services.NotificationView, error)
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications NotificationLister
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationLister) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
}

// GetNotifications returns the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	notifications, err := h.notifications.ListFor(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notifications)
}
