package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
)

// postDetailer attaches author and like count to posts
type postDetailer struct {
	users repositories.UserRepository
	likes repositories.LikeRepository
}

func (d postDetailer) details(ctx context.Context, posts []models.Post) ([]models.PostDetail, error) {
	authorIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	authors, err := compactAuthors(ctx, d.users, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.PostDetail, 0, len(posts))
	for _, p := range posts {
		count, err := d.likes.GetLikesCountByPostID(ctx, p.ID.Hex())
		if err != nil {
			return nil, ErrInternal("failed to count likes", err)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		out = append(out, models.PostDetail{Post: p, Author: authors.of(p.AuthorID), LikesCount: count})
	}
	return out, nil
}

type authorIndex map[uint]models.UserCompact

// of returns the author, or a bare id when the account is gone
func (a authorIndex) of(id uint) models.UserCompact {
	if author, ok := a[id]; ok {
		return author
	}
	return models.UserCompact{ID: id}
}

func compactAuthors(ctx context.Context, users repositories.UserRepository, ids []uint) (authorIndex, error) {
	found, err := users.GetUsersByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, ErrInternal("failed to load authors", err)
	}
	index := make(authorIndex, len(found))
	for i := range found {
		index[found[i].ID] = found[i].ToCompact()
	}
	return index, nil
}
