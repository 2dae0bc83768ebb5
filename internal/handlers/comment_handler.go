package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// CommentStore is the content API behind the comment routes
type CommentStore interface {
	CreateComment(ctx context.Context, authorID uint, postID string, req models.CreateCommentRequest) (*models.CommentDetail, error)
	ListComments(ctx context.Context, postID string) ([]models.CommentDetail, error)
	UpdateComment(ctx context.Context, userID uint, commentID string, req models.UpdateCommentRequest) (*models.CommentDetail, error)
	DeleteComment(ctx context.Context, userID uint, commentID string) error
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments CommentStore
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments CommentStore) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterPublicCommentRoutes registers the read-only comment routes
func (h *CommentHandler) RegisterPublicCommentRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
}

// RegisterCommentRoutes registers the comment routes that need an authenticated user
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	authorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.CreateComment(c.Request().Context(), authorID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetCommentsByPostID lists the comments of a post, oldest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	comments, err := h.comments.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// UpdateComment edits a comment. Only its author may do so.
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.UpdateComment(c.Request().Context(), userID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment deletes a comment. Only its author may do so.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.comments.DeleteComment(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
