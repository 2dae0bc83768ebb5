package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// FeedReader assembles a viewer's feed
type FeedReader interface {
	GetFeed(ctx context.Context, viewerID uint, page, pageSize int) (*models.Page[models.PostDetail], error)
}

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed FeedReader
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed FeedReader) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns one page of posts by the users the caller follows
func (h *FeedHandler) GetFeed(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	result, err := h.feed.GetFeed(c.Request().Context(), viewerID, page, 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
