package models

import "time"

// TargetKind tags what a notification points at
type TargetKind string

const (
	TargetPost TargetKind = "post"
)

// Target is a weak reference to the subject of a notification. It identifies
// the subject but never owns it; the subject may be gone by the time it is read.
type Target struct {
	Kind TargetKind `json:"type"`
	ID   string     `json:"id"`
}

func PostTarget(postID string) *Target {
	return &Target{Kind: TargetPost, ID: postID}
}

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID uint      `json:"recipient_id" gorm:"index"`
	ActorID     uint      `json:"actor_id" gorm:"index"`
	Verb        string    `json:"verb" gorm:"size:255"`
	TargetType  *string   `json:"-" gorm:"size:20"`
	TargetID    *string   `json:"-" gorm:"size:64"`
	IsRead      bool      `json:"is_read" gorm:"default:false"`
	CreatedAt   time.Time `json:"timestamp" gorm:"index"`
}

// Target returns the notification's target reference, if any.
func (n *Notification) Target() (Target, bool) {
	if n.TargetType == nil || n.TargetID == nil {
		return Target{}, false
	}
	return Target{Kind: TargetKind(*n.TargetType), ID: *n.TargetID}, true
}

// SetTarget stores t, or clears the target when t is nil.
func (n *Notification) SetTarget(t *Target) {
	if t == nil {
		n.TargetType, n.TargetID = nil, nil
		return
	}
	kind, id := string(t.Kind), t.ID
	n.TargetType, n.TargetID = &kind, &id
}

// Verbs emitted by engagement actions
const (
	VerbLikedPost = "liked your post"
)
