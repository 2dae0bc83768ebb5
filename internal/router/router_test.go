package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/socialfeed/internal/handlers"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type stubIdentity struct {
	Identity
	tokens map[string]uint
	roles  map[uint]models.Role
}

func (s *stubIdentity) ParseToken(token string) (uint, error) {
	id, ok := s.tokens[token]
	if !ok {
		return 0, errors.New("invalid token")
	}
	return id, nil
}

func (s *stubIdentity) RoleOf(_ context.Context, userID uint) (models.Role, error) {
	return s.roles[userID], nil
}

func (s *stubIdentity) UpdateRole(_ context.Context, _, targetID uint, role models.Role) (*models.Profile, error) {
	return &models.Profile{UserID: targetID, Role: role}, nil
}

type stubPosts struct {
	handlers.PostStore
}

func (stubPosts) ListPosts(_ context.Context, page, _ int, _ models.PostQuery) (*models.Page[models.PostDetail], error) {
	return &models.Page[models.PostDetail]{CurrentPage: page, Results: []models.PostDetail{}}, nil
}

type stubComments struct {
	handlers.CommentStore
}

func (stubComments) ListComments(context.Context, string) ([]models.CommentDetail, error) {
	return []models.CommentDetail{}, nil
}

func newServer() *echo.Echo {
	e := echo.New()
	SetupMiddleware(e)
	SetupRoutes(e, Dependencies{
		Identity: &stubIdentity{
			tokens: map[string]uint{"admin": 1, "member": 2},
			roles:  map[uint]models.Role{1: models.RoleAdmin, 2: models.RoleMember},
		},
		Posts:    stubPosts{},
		Comments: stubComments{},
	})
	return e
}

func TestSetupRoutes_Registered(t *testing.T) {
	e := newServer()

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/firebase-login",
		"GET /api/v1/profile",
		"GET /api/v1/users/:id",
		"POST /api/v1/users/:id/follow",
		"POST /api/v1/users/:id/unfollow",
		"GET /api/v1/users/:id/following",
		"GET /api/v1/users/:id/followers",
		"POST /api/v1/posts/:id/like",
		"POST /api/v1/posts/:id/unlike",
		"GET /api/v1/feed",
		"GET /api/v1/notifications",
		"GET /api/v1/posts",
		"GET /api/v1/posts/:id",
		"POST /api/v1/posts",
		"PUT /api/v1/posts/:id",
		"DELETE /api/v1/posts/:id",
		"GET /api/v1/posts/:id/comments",
		"POST /api/v1/posts/:id/comments",
		"PUT /api/v1/comments/:id",
		"DELETE /api/v1/comments/:id",
		"PUT /api/v1/admin/users/:id/role",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetupRoutes_Auth(t *testing.T) {
	e := newServer()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{"health is public", http.MethodGet, "/health", "", "", http.StatusOK},
		{"posts are public", http.MethodGet, "/api/v1/posts", "", "", http.StatusOK},
		{"comments are public", http.MethodGet, "/api/v1/posts/65a1b2c3d4e5f6a7b8c9d0e1/comments", "", "", http.StatusOK},
		{"creating a post needs a token", http.MethodPost, "/api/v1/posts", "", `{"title":"t","content":"c"}`, http.StatusUnauthorized},
		{"commenting needs a token", http.MethodPost, "/api/v1/posts/65a1b2c3d4e5f6a7b8c9d0e1/comments", "", `{"content":"c"}`, http.StatusUnauthorized},
		{"deleting a comment needs a token", http.MethodDelete, "/api/v1/comments/65a1b2c3d4e5f6a7b8c9d0e2", "", "", http.StatusUnauthorized},
		{"feed needs a token", http.MethodGet, "/api/v1/feed", "", "", http.StatusUnauthorized},
		{"notifications reject bad token", http.MethodGet, "/api/v1/notifications", "bogus", "", http.StatusUnauthorized},
		{"admin changes roles", http.MethodPut, "/api/v1/admin/users/2/role", "admin", `{"role":"librarian"}`, http.StatusOK},
		{"member cannot change roles", http.MethodPut, "/api/v1/admin/users/1/role", "member", `{"role":"admin"}`, http.StatusForbidden},
		{"role must be known", http.MethodPut, "/api/v1/admin/users/2/role", "admin", `{"role":"owner"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
		})
	}
}
