package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// Engagement is what the like routes need
type Engagement interface {
	Like(ctx context.Context, userID uint, postID string) (*models.Like, error)
	Unlike(ctx context.Context, userID uint, postID string) error
	HasLiked(ctx context.Context, userID uint, postID string) (bool, error)
}

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	engagement Engagement
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(engagement Engagement) *LikeHandler {
	return &LikeHandler{engagement: engagement}
}

// LikeStatus reports whether the caller likes a post
type LikeStatus struct {
	PostID string `json:"post_id"`
	Liked  bool   `json:"liked"`
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.LikePost)
	g.POST("/posts/:id/unlike", h.UnlikePost)
	g.GET("/posts/:id/like", h.GetLikeStatus)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	like, err := h.engagement.Like(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, like)
}

// UnlikePost handles unliking a post. Unliking a post that is not liked
// still answers 200.
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	postID := c.Param("id")
	if err := h.engagement.Unlike(c.Request().Context(), userID, postID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LikeStatus{PostID: postID, Liked: false})
}

// GetLikeStatus checks if the authenticated user has liked a post
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	postID := c.Param("id")
	liked, err := h.engagement.HasLiked(c.Request().Context(), userID, postID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LikeStatus{PostID: postID, Liked: liked})
}
