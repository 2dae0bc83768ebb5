package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// PostStore is the content API behind the post routes
type PostStore interface {
	CreatePost(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.PostDetail, error)
	GetPost(ctx context.Context, postID string) (*models.PostDetail, error)
	ListPosts(ctx context.Context, page, pageSize int, query models.PostQuery) (*models.Page[models.PostDetail], error)
	UpdatePost(ctx context.Context, userID uint, postID string, req models.UpdatePostRequest) (*models.PostDetail, error)
	DeletePost(ctx context.Context, userID uint, postID string) error
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts PostStore
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts PostStore) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPublicPostRoutes registers the read-only post routes, open to
// anonymous callers
func (h *PostHandler) RegisterPublicPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
}

// RegisterPostRoutes registers the post routes that need an authenticated user
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost handles the creation of a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	authorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.posts.CreatePost(c.Request().Context(), authorID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPosts lists every post, newest first, with optional ?search= and ?tag=
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	result, err := h.posts.ListPosts(c.Request().Context(), page, 0, models.PostQuery{
		Search: c.QueryParam("search"),
		Tag:    c.QueryParam("tag"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetPost retrieves a single post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost handles updating an existing post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.posts.UpdatePost(c.Request().Context(), userID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost handles deleting a post
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.posts.DeletePost(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
