package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ContentService owns the lifecycle of posts and their comments. Only the
// author of a post or comment may change it.
type ContentService struct {
	users    repositories.UserRepository
	posts    repositories.PostRepository
	likes    repositories.LikeRepository
	comments repositories.CommentRepository
	detailer postDetailer
	pageSize int
	title    *bluemonday.Policy
	body     *bluemonday.Policy
	now      func() time.Time
	log      *zap.Logger
}

func NewContentService(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	comments repositories.CommentRepository,
	pageSize int,
) *ContentService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ContentService{
		users:    users,
		posts:    posts,
		likes:    likes,
		comments: comments,
		detailer: postDetailer{users: users, likes: likes},
		pageSize: pageSize,
		title:    bluemonday.StrictPolicy(),
		body:     bluemonday.UGCPolicy(),
		now:      time.Now,
		log:      logger.Get().Named("content"),
	}
}

// timestamp returns the current time at the precision Mongo stores
func (s *ContentService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *ContentService) sanitize(title, content string) (string, string) {
	return strings.TrimSpace(s.title.Sanitize(title)), strings.TrimSpace(s.body.Sanitize(content))
}

// normalizeTags lowercases, strips markup from and de-duplicates tags,
// dropping empty ones. The result is never nil.
func (s *ContentService) normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(s.title.Sanitize(tag)))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func (s *ContentService) CreatePost(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.PostDetail, error) {
	author, err := resolveViewer(ctx, s.users, authorID)
	if err != nil {
		return nil, err
	}

	title, content := s.sanitize(req.Title, req.Content)
	if title == "" || content == "" {
		return nil, ErrInvalidOperation("title and content are required")
	}

	now := s.timestamp()
	post := &models.Post{
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Tags:      s.normalizeTags(req.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.log.Error("create post failed", zap.Uint("author_id", authorID), zap.Error(err))
		return nil, ErrInternal("failed to create post", err)
	}
	return &models.PostDetail{Post: *post, Author: author.ToCompact()}, nil
}

func (s *ContentService) GetPost(ctx context.Context, postID string) (*models.PostDetail, error) {
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	details, err := s.detailer.details(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListPosts pages through every post, newest first, optionally filtered by a
// case-insensitive search over title and content and by tag.
func (s *ContentService) ListPosts(ctx context.Context, page, pageSize int, query models.PostQuery) (*models.Page[models.PostDetail], error) {
	if page < 1 {
		return nil, ErrInvalidOperation("page must be at least 1")
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	filter := repositories.PostFilter{
		Search: strings.TrimSpace(query.Search),
		Tag:    strings.ToLower(strings.TrimSpace(query.Tag)),
	}
	count, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, ErrInternal("failed to count posts", err)
	}

	result := &models.Page[models.PostDetail]{Count: count, Results: []models.PostDetail{}}
	numPages, current, skip, inRange := paginate(count, page, pageSize)
	result.NumPages, result.CurrentPage = numPages, current
	if !inRange {
		return result, nil
	}

	posts, err := s.posts.ListPosts(ctx, filter, skip, int64(pageSize))
	if err != nil {
		return nil, ErrInternal("failed to list posts", err)
	}
	result.Results, err = s.detailer.details(ctx, posts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ContentService) UpdatePost(ctx context.Context, userID uint, postID string, req models.UpdatePostRequest) (*models.PostDetail, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		post.Title = strings.TrimSpace(s.title.Sanitize(req.Title))
	}
	if req.Content != "" {
		post.Content = strings.TrimSpace(s.body.Sanitize(req.Content))
	}
	if req.Tags != nil {
		post.Tags = s.normalizeTags(req.Tags)
	}
	if post.Title == "" || post.Content == "" {
		return nil, ErrInvalidOperation("title and content cannot be empty")
	}
	post.UpdatedAt = s.timestamp()

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("post not found")
		}
		s.log.Error("update post failed", zap.String("post_id", postID), zap.Error(err))
		return nil, ErrInternal("failed to update post", err)
	}
	details, err := s.detailer.details(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DeletePost removes the post, then every like and comment on it. Once the
// post document is gone the delete has succeeded: a failed sweep of its likes
// or comments is logged, and the leftovers are unreachable through any
// operation.
func (s *ContentService) DeletePost(ctx context.Context, userID uint, postID string) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound("post not found")
		}
		s.log.Error("delete post failed", zap.String("post_id", postID), zap.Error(err))
		return ErrInternal("failed to delete post", err)
	}

	likesRemoved, err := s.likes.DeleteLikesByPostID(ctx, post.ID.Hex())
	if err != nil {
		s.log.Error("delete likes of post failed", zap.String("post_id", postID), zap.Error(err))
	}
	commentsRemoved, err := s.comments.DeleteCommentsByPostID(ctx, post.ID)
	if err != nil {
		s.log.Error("delete comments of post failed", zap.String("post_id", postID), zap.Error(err))
	}
	s.log.Debug("post deleted",
		zap.String("post_id", postID),
		zap.Int64("likes_removed", likesRemoved),
		zap.Int64("comments_removed", commentsRemoved))
	return nil
}

func (s *ContentService) ownedPost(ctx context.Context, userID uint, postID string) (*models.Post, error) {
	if _, err := resolveViewer(ctx, s.users, userID); err != nil {
		return nil, err
	}
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, ErrForbidden("only the author can modify this post")
	}
	return post, nil
}

// CreateComment adds a comment by authorID to postID
func (s *ContentService) CreateComment(ctx context.Context, authorID uint, postID string, req models.CreateCommentRequest) (*models.CommentDetail, error) {
	author, err := resolveViewer(ctx, s.users, authorID)
	if err != nil {
		return nil, err
	}
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(s.body.Sanitize(req.Content))
	if content == "" {
		return nil, ErrInvalidOperation("content is required")
	}

	now := s.timestamp()
	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.log.Error("create comment failed", zap.Uint("author_id", authorID), zap.String("post_id", postID), zap.Error(err))
		return nil, ErrInternal("failed to create comment", err)
	}
	return &models.CommentDetail{Comment: *comment, Author: author.ToCompact()}, nil
}

// ListComments returns the comments of postID, oldest first
func (s *ContentService) ListComments(ctx context.Context, postID string) ([]models.CommentDetail, error) {
	post, err := resolvePost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, post.ID)
	if err != nil {
		return nil, ErrInternal("failed to list comments", err)
	}

	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	authors, err := compactAuthors(ctx, s.users, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.CommentDetail, 0, len(comments))
	for _, c := range comments {
		out = append(out, models.CommentDetail{Comment: c, Author: authors.of(c.AuthorID)})
	}
	return out, nil
}

func (s *ContentService) UpdateComment(ctx context.Context, userID uint, commentID string, req models.UpdateCommentRequest) (*models.CommentDetail, error) {
	author, comment, err := s.ownedComment(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}

	comment.Content = strings.TrimSpace(s.body.Sanitize(req.Content))
	if comment.Content == "" {
		return nil, ErrInvalidOperation("content is required")
	}
	comment.UpdatedAt = s.timestamp()

	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("comment not found")
		}
		s.log.Error("update comment failed", zap.String("comment_id", commentID), zap.Error(err))
		return nil, ErrInternal("failed to update comment", err)
	}
	return &models.CommentDetail{Comment: *comment, Author: author.ToCompact()}, nil
}

func (s *ContentService) DeleteComment(ctx context.Context, userID uint, commentID string) error {
	_, comment, err := s.ownedComment(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, comment.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound("comment not found")
		}
		s.log.Error("delete comment failed", zap.String("comment_id", commentID), zap.Error(err))
		return ErrInternal("failed to delete comment", err)
	}
	return nil
}

func (s *ContentService) ownedComment(ctx context.Context, userID uint, commentID string) (*models.User, *models.Comment, error) {
	user, err := resolveViewer(ctx, s.users, userID)
	if err != nil {
		return nil, nil, err
	}
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrNotFound("comment not found")
		}
		return nil, nil, ErrInternal("failed to load comment", err)
	}
	if comment.AuthorID != userID {
		return nil, nil, ErrForbidden("only the author can modify this comment")
	}
	return user, comment, nil
}
