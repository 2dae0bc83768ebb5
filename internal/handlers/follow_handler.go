package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// SocialGraph is what the follow routes need from the graph service
type SocialGraph interface {
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
	ListFollowees(ctx context.Context, userID uint) ([]models.UserCompact, error)
	ListFollowers(ctx context.Context, userID uint) ([]models.UserCompact, error)
}

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	graph SocialGraph
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(graph SocialGraph) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// FollowResponse reports the edge state after a follow or unfollow
type FollowResponse struct {
	UserID    uint `json:"user_id"`
	Following bool `json:"following"`
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.POST("/users/:id/unfollow", h.UnfollowUser)
	g.GET("/users/:id/following", h.GetFollowing)
	g.GET("/users/:id/followers", h.GetFollowers)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.graph.Follow(c.Request().Context(), viewerID, targetID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FollowResponse{UserID: targetID, Following: true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.graph.Unfollow(c.Request().Context(), viewerID, targetID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FollowResponse{UserID: targetID, Following: false})
}

// GetFollowing lists the users a user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.graph.ListFollowees(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetFollowers lists the users following a user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.graph.ListFollowers(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}
