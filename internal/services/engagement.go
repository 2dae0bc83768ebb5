package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/metrics"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"go.uber.org/zap"
)

// Notifier is the part of the notification sink engagement writes to
type Notifier interface {
	Append(ctx context.Context, recipientID, actorID uint, verb string, target *models.Target) (*models.Notification, error)
}

// EngagementService coordinates likes and the notifications they emit.
type EngagementService struct {
	users    repositories.UserRepository
	posts    repositories.PostRepository
	likes    repositories.LikeRepository
	notifier Notifier
	tx       repositories.Transactor
	metrics  metrics.Recorder
	log      *zap.Logger
}

func NewEngagementService(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	notifier Notifier,
	tx repositories.Transactor,
	recorder metrics.Recorder,
) *EngagementService {
	return &EngagementService{
		users:    users,
		posts:    posts,
		likes:    likes,
		notifier: notifier,
		tx:       tx,
		metrics:  recorder,
		log:      logger.Get().Named("engagement"),
	}
}

// Like records userID's like on postID. A second like of the same post is
// reported as already_liked and emits nothing. Only the call that inserted
// the like notifies the author, and never for a self-like. The like and its
// notification commit together.
func (s *EngagementService) Like(ctx context.Context, userID uint, postID string) (*models.Like, error) {
	if _, err := resolveViewer(ctx, s.users, userID); err != nil {
		return nil, err
	}
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	like := &models.Like{UserID: userID, PostID: post.ID.Hex()}
	var created bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.likes.CreateLike(ctx, like)
		if err != nil {
			s.log.Error("create like failed", zap.Uint("user_id", userID), zap.String("post_id", postID), zap.Error(err))
			return ErrInternal("failed to like post", err)
		}
		if !created {
			return nil
		}
		// The post may have been deleted, and its likes swept, since it was
		// resolved above.
		if _, err := resolvePost(ctx, s.posts, like.PostID); err != nil {
			return err
		}
		if post.AuthorID == userID {
			return nil
		}
		_, err = s.notifier.Append(ctx, post.AuthorID, userID, models.VerbLikedPost, models.PostTarget(like.PostID))
		return err
	})
	if err != nil {
		return nil, orInternal(err, "failed to like post")
	}

	s.metrics.RecordLike(created)
	if !created {
		return nil, ErrAlreadyLiked(like.PostID)
	}
	return like, nil
}

// Unlike removes userID's like on postID. Unliking a post that is not liked
// succeeds without doing anything.
func (s *EngagementService) Unlike(ctx context.Context, userID uint, postID string) error {
	if _, err := resolveViewer(ctx, s.users, userID); err != nil {
		return err
	}
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return err
	}

	removed, err := s.likes.DeleteLike(ctx, post.ID.Hex(), userID)
	if err != nil {
		s.log.Error("delete like failed", zap.Uint("user_id", userID), zap.String("post_id", postID), zap.Error(err))
		return ErrInternal("failed to unlike post", err)
	}
	s.metrics.RecordUnlike(removed)
	return nil
}

// HasLiked reports whether userID currently likes postID.
func (s *EngagementService) HasLiked(ctx context.Context, userID uint, postID string) (bool, error) {
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return false, err
	}
	liked, err := s.likes.HasUserLikedPost(ctx, post.ID.Hex(), userID)
	if err != nil {
		return false, ErrInternal("failed to check like", err)
	}
	return liked, nil
}
