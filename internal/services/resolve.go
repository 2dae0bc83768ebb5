package services

import (
	"context"
	"errors"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
)

// resolveViewer loads the acting identity. A missing row means the caller's
// credentials no longer map to a user.
func resolveViewer(ctx context.Context, users repositories.UserRepository, id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrUnauthenticated("user not authenticated")
	}
	user, err := users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthenticated("user not authenticated")
		}
		return nil, ErrInternal("failed to load user", err)
	}
	return user, nil
}

func resolveUser(ctx context.Context, users repositories.UserRepository, id uint) (*models.User, error) {
	user, err := users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("user not found")
		}
		return nil, ErrInternal("failed to load user", err)
	}
	return user, nil
}

func resolvePost(ctx context.Context, posts repositories.PostRepository, id string) (*models.Post, error) {
	post, err := posts.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("post not found")
		}
		return nil, ErrInternal("failed to load post", err)
	}
	return post, nil
}

// paginate slices count items into pages of pageSize. A page past the end is
// reported with inRange=false and current clamped to the last page (or 1).
func paginate(count int64, page, pageSize int) (numPages, current int, skip int64, inRange bool) {
	numPages = int((count + int64(pageSize) - 1) / int64(pageSize))
	if page > numPages {
		return numPages, max(numPages, 1), 0, false
	}
	return numPages, page, int64(page-1) * int64(pageSize), true
}
