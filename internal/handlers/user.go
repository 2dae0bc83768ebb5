package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// UserDirectory is the identity read side plus role administration
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	Me(ctx context.Context, viewerID uint) (*models.User, *models.Profile, error)
	UpdateRole(ctx context.Context, actorID, targetID uint, role models.Role) (*models.Profile, error)
}

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users UserDirectory
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// ProfileResponse is the caller's own account with its role
type ProfileResponse struct {
	*models.User
	Role models.Role `json:"role"`
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// RegisterAdminRoutes registers routes that require the admin role
func (h *UserHandler) RegisterAdminRoutes(g *echo.Group) {
	g.PUT("/users/:id/role", h.UpdateRole)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, profile, err := h.users.Me(c.Request().Context(), viewerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProfileResponse{User: user, Role: profile.Role})
}

// UpdateRole changes another user's role
func (h *UserHandler) UpdateRole(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.users.UpdateRole(c.Request().Context(), actorID, targetID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
