package services

import (
	"errors"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// TokenManager issues and verifies the service's own HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token carrying the user's id and username
func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", ErrInternal("failed to sign token", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its claims. Every failure is
// reported as unauthenticated.
func (m *TokenManager) Parse(tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated("invalid or expired token")
	}
	if claims.UserID == 0 {
		return nil, ErrUnauthenticated("token has no subject")
	}
	return claims, nil
}
