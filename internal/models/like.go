package models

import "time"

// Like represents a like on a post. At most one per (user, post).
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_post_like"`
	PostID    string    `json:"post_id" gorm:"size:24;index;uniqueIndex:idx_user_post_like"` // MongoDB ObjectID as hex
	CreatedAt time.Time `json:"created_at"`
}
