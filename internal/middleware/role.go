package middleware

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/labstack/echo/v4"
)

// RoleLookup returns the role of a user
type RoleLookup interface {
	RoleOf(ctx context.Context, userID uint) (models.Role, error)
}

// RequireRole rejects requests whose user does not hold one of roles. It must
// run after JWTAuthMiddleware.
func RequireRole(lookup RoleLookup, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}
			role, err := lookup.RoleOf(c.Request().Context(), userID)
			if err != nil {
				return err
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
		}
	}
}
