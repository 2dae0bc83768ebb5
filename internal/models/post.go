package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a post stored in MongoDB
type Post struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorID  uint               `json:"author_id" bson:"author_id"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	Tags      []string           `json:"tags" bson:"tags"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=255"`
	Content string   `json:"content" validate:"required,min=1,max=5000"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
}

// UpdatePostRequest defines the request body for updating an existing post.
// A nil Tags leaves the tags alone, an empty list clears them.
type UpdatePostRequest struct {
	Title   string   `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Content string   `json:"content,omitempty" validate:"omitempty,min=1,max=5000"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
}

// PostQuery narrows a post listing
type PostQuery struct {
	Search string
	Tag    string
}

// PostDetail is a post with its author and like count
type PostDetail struct {
	Post
	Author     UserCompact `json:"author"`
	LikesCount int64       `json:"likes_count"`
}
