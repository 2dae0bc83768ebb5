package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// Authenticator is the identity workflow behind the auth routes
type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*services.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*services.AuthResult, error)
	FirebaseLogin(ctx context.Context, idToken string) (*services.AuthResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	identity Authenticator
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(identity Authenticator) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Register creates a local account and returns its token
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.identity.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// Login authenticates with username and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.identity.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// FirebaseLogin exchanges a Firebase ID token for a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.identity.FirebaseLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
