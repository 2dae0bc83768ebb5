package models

import "time"

// Follow is a directed edge of the social graph: FollowerID follows
// FollowingID. The pair is unique and never points at itself; both are
// enforced by the follows table constraints.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"not null;uniqueIndex:idx_follower_following,priority:1"`
	FollowingID uint      `json:"following_id" gorm:"not null;uniqueIndex:idx_follower_following,priority:2;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
}

