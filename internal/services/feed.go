package services

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/metrics"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"go.uber.org/zap"
)

// DefaultPageSize is used when a caller passes a non-positive page size
const DefaultPageSize = 10

// FolloweeLister is the part of the social graph the feed reads
type FolloweeLister interface {
	FolloweeIDs(ctx context.Context, userID uint) ([]uint, error)
}

// FeedService assembles the reverse-chronological feed of posts written by
// the users a viewer follows.
type FeedService struct {
	users    repositories.UserRepository
	graph    FolloweeLister
	posts    repositories.PostRepository
	detailer postDetailer
	pageSize int
	metrics  metrics.Recorder
	log      *zap.Logger
}

func NewFeedService(
	users repositories.UserRepository,
	graph FolloweeLister,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	pageSize int,
	recorder metrics.Recorder,
) *FeedService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FeedService{
		users:    users,
		graph:    graph,
		posts:    posts,
		detailer: postDetailer{users: users, likes: likes},
		pageSize: pageSize,
		metrics:  recorder,
		log:      logger.Get().Named("feed"),
	}
}

// PageSize is the page size used when GetFeed is called with pageSize <= 0
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// GetFeed returns page (1-based) of the viewer's feed. Posts are ordered by
// created_at DESC, then id DESC. A page past the end yields no results and
// current_page is clamped to the last page, or 1 when the feed is empty.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint, page, pageSize int) (*models.Page[models.PostDetail], error) {
	start := time.Now()
	defer func() { s.metrics.RecordFeedLatency(time.Since(start)) }()

	if _, err := resolveViewer(ctx, s.users, viewerID); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, ErrInvalidOperation("page must be at least 1")
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	followees, err := s.graph.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	result := &models.Page[models.PostDetail]{Results: []models.PostDetail{}}
	if len(followees) == 0 {
		result.NumPages, result.CurrentPage, _, _ = paginate(0, page, pageSize)
		return result, nil
	}

	filter := repositories.PostFilter{AuthorIDs: followees}
	count, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		s.log.Error("count feed posts failed", zap.Uint("viewer_id", viewerID), zap.Error(err))
		return nil, ErrInternal("failed to count feed posts", err)
	}

	numPages, current, skip, inRange := paginate(count, page, pageSize)
	result.Count, result.NumPages, result.CurrentPage = count, numPages, current
	if !inRange {
		return result, nil
	}

	posts, err := s.posts.ListPosts(ctx, filter, skip, int64(pageSize))
	if err != nil {
		s.log.Error("list feed posts failed", zap.Uint("viewer_id", viewerID), zap.Error(err))
		return nil, ErrInternal("failed to list feed posts", err)
	}
	result.Results, err = s.detailer.details(ctx, posts)
	if err != nil {
		return nil, err
	}
	return result, nil
}
