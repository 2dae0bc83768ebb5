package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/metrics"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"go.uber.org/zap"
)

// SocialGraphService manages directed follow edges between users.
type SocialGraphService struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	metrics metrics.Recorder
	log     *zap.Logger
}

func NewSocialGraphService(users repositories.UserRepository, follows repositories.FollowRepository, recorder metrics.Recorder) *SocialGraphService {
	return &SocialGraphService{
		users:   users,
		follows: follows,
		metrics: recorder,
		log:     logger.Get().Named("social_graph"),
	}
}

// Follow makes followerID follow followeeID. Following someone already
// followed is a successful no-op.
func (s *SocialGraphService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return ErrInvalidOperation("cannot follow yourself")
	}
	if _, err := resolveViewer(ctx, s.users, followerID); err != nil {
		return err
	}
	if _, err := resolveUser(ctx, s.users, followeeID); err != nil {
		return err
	}

	created, err := s.follows.AddFollow(ctx, followerID, followeeID)
	if err != nil {
		s.log.Error("add follow failed", zap.Uint("follower_id", followerID), zap.Uint("followee_id", followeeID), zap.Error(err))
		return ErrInternal("failed to follow user", err)
	}
	s.metrics.RecordFollow(created)
	return nil
}

// Unfollow removes the edge if present. Removing a missing edge succeeds.
func (s *SocialGraphService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return ErrInvalidOperation("cannot unfollow yourself")
	}
	if _, err := resolveViewer(ctx, s.users, followerID); err != nil {
		return err
	}

	removed, err := s.follows.RemoveFollow(ctx, followerID, followeeID)
	if err != nil {
		s.log.Error("remove follow failed", zap.Uint("follower_id", followerID), zap.Uint("followee_id", followeeID), zap.Error(err))
		return ErrInternal("failed to unfollow user", err)
	}
	s.metrics.RecordUnfollow(removed)
	return nil
}

// FolloweeIDs returns the distinct ids userID follows, in no particular order.
func (s *SocialGraphService) FolloweeIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids, err := s.follows.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, ErrInternal("failed to list followees", err)
	}
	return distinct(ids), nil
}

// ListFollowees resolves the users userID follows.
func (s *SocialGraphService) ListFollowees(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	if _, err := resolveUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	ids, err := s.FolloweeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.compactUsers(ctx, ids)
}

// ListFollowers resolves the users following userID.
func (s *SocialGraphService) ListFollowers(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	if _, err := resolveUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	ids, err := s.follows.GetFollowerIDs(ctx, userID)
	if err != nil {
		return nil, ErrInternal("failed to list followers", err)
	}
	return s.compactUsers(ctx, distinct(ids))
}

// IsFollowing reports whether followerID follows followeeID.
func (s *SocialGraphService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	following, err := s.follows.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return false, ErrInternal("failed to check follow", err)
	}
	return following, nil
}

func (s *SocialGraphService) compactUsers(ctx context.Context, ids []uint) ([]models.UserCompact, error) {
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, ErrInternal("failed to load users", err)
	}
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

func distinct(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
