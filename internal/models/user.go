package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;uniqueIndex"`
	Email       string    `json:"email"`
	Bio         string    `json:"bio"`
	Password    string    `json:"-"`                                          // bcrypt hash
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // set once the user signs in through Firebase
	IsStaff     bool      `json:"is_staff"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserCompact is the public projection embedded in other payloads
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
	Bio      string `json:"bio" validate:"max=500"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
