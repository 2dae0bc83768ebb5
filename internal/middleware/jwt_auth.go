package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserIDKey is the echo context key holding the authenticated user id
const UserIDKey = "userID"

// TokenParser validates a local access token
type TokenParser interface {
	ParseToken(tokenString string) (uint, error)
}

// FirebaseResolver maps a Firebase ID token to a local user id
type FirebaseResolver interface {
	VerifyFirebaseToken(ctx context.Context, idToken string) (string, error)
	UserIDForFirebaseUID(ctx context.Context, uid string) (uint, error)
}

// JWTAuthMiddleware checks for a valid bearer token and stores the user id
// in the context. Local tokens are tried first; when firebase is non-nil a
// Firebase ID token is accepted as well.
func JWTAuthMiddleware(tokens TokenParser, firebase FirebaseResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			userID, err := tokens.ParseToken(tokenString)
			if err != nil && firebase != nil {
				userID, err = firebaseUserID(c.Request().Context(), firebase, tokenString)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

func firebaseUserID(ctx context.Context, firebase FirebaseResolver, idToken string) (uint, error) {
	uid, err := firebase.VerifyFirebaseToken(ctx, idToken)
	if err != nil {
		return 0, err
	}
	return firebase.UserIDForFirebaseUID(ctx, uid)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

// UserID returns the authenticated user id, or 0 outside JWTAuthMiddleware
func UserID(c echo.Context) uint {
	id, _ := c.Get(UserIDKey).(uint)
	return id
}
