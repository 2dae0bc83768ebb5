package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/metrics"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"go.uber.org/zap"
)

// ResolvedTarget is a notification target looked up at read time. Exactly
// one of the per-kind fields is set when the subject still exists.
type ResolvedTarget struct {
	Kind models.TargetKind `json:"type"`
	ID   string            `json:"id"`
	Post *models.Post      `json:"post,omitempty"`
}

// TargetResolver looks up a target of one kind. It returns nil, nil when the
// subject no longer exists.
type TargetResolver func(ctx context.Context, id string) (*ResolvedTarget, error)

// NotificationView is a notification with its actor and target resolved
type NotificationView struct {
	models.Notification
	Actor  models.UserCompact `json:"actor"`
	Target *ResolvedTarget    `json:"target,omitempty"`
}

// NotificationService is the append-only notification sink.
type NotificationService struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	resolvers     map[models.TargetKind]TargetResolver
	now           func() time.Time
	metrics       metrics.Recorder
	log           *zap.Logger
}

func NewNotificationService(
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
	posts repositories.PostRepository,
	recorder metrics.Recorder,
) *NotificationService {
	s := &NotificationService{
		users:         users,
		notifications: notifications,
		resolvers:     map[models.TargetKind]TargetResolver{},
		now:           time.Now,
		metrics:       recorder,
		log:           logger.Get().Named("notifications"),
	}
	s.resolvers[models.TargetPost] = postTargetResolver(posts)
	return s
}

func postTargetResolver(posts repositories.PostRepository) TargetResolver {
	return func(ctx context.Context, id string) (*ResolvedTarget, error) {
		post, err := posts.GetPostByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &ResolvedTarget{Kind: models.TargetPost, ID: id, Post: post}, nil
	}
}

// Append records a notification. It is never called directly by users.
func (s *NotificationService) Append(ctx context.Context, recipientID, actorID uint, verb string, target *models.Target) (*models.Notification, error) {
	if recipientID == 0 || actorID == 0 {
		return nil, ErrInvalidOperation("recipient and actor are required")
	}
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return nil, ErrInvalidOperation("verb is required")
	}

	n := &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Verb:        verb,
		IsRead:      false,
		CreatedAt:   s.now().UTC(),
	}
	n.SetTarget(target)

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.log.Error("append notification failed",
			zap.Uint("recipient_id", recipientID),
			zap.Uint("actor_id", actorID),
			zap.String("verb", verb),
			zap.Error(err))
		return nil, ErrInternal("failed to append notification", err)
	}
	s.metrics.RecordNotification(verb)
	return n, nil
}

// ListFor returns every notification of recipientID, newest first.
func (s *NotificationService) ListFor(ctx context.Context, recipientID uint) ([]NotificationView, error) {
	if _, err := resolveViewer(ctx, s.users, recipientID); err != nil {
		return nil, err
	}

	notifications, err := s.notifications.GetByRecipientID(ctx, recipientID)
	if err != nil {
		return nil, ErrInternal("failed to list notifications", err)
	}

	actorIDs := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		actorIDs = append(actorIDs, n.ActorID)
	}
	actors, err := s.users.GetUsersByIDs(ctx, distinct(actorIDs))
	if err != nil {
		return nil, ErrInternal("failed to load actors", err)
	}
	byID := make(map[uint]models.UserCompact, len(actors))
	for i := range actors {
		byID[actors[i].ID] = actors[i].ToCompact()
	}

	views := make([]NotificationView, 0, len(notifications))
	for _, n := range notifications {
		actor, ok := byID[n.ActorID]
		if !ok {
			actor = models.UserCompact{ID: n.ActorID}
		}
		view := NotificationView{Notification: n, Actor: actor}
		if target, ok := n.Target(); ok {
			view.Target = s.resolveTarget(ctx, target)
		}
		views = append(views, view)
	}
	return views, nil
}

// resolveTarget never fails the listing: a lookup error or a vanished subject
// leaves only the bare reference.
func (s *NotificationService) resolveTarget(ctx context.Context, target models.Target) *ResolvedTarget {
	bare := &ResolvedTarget{Kind: target.Kind, ID: target.ID}
	resolve, ok := s.resolvers[target.Kind]
	if !ok {
		return bare
	}
	resolved, err := resolve(ctx, target.ID)
	if err != nil {
		s.log.Warn("resolve notification target failed",
			zap.String("target_type", string(target.Kind)),
			zap.String("target_id", target.ID),
			zap.Error(err))
		return bare
	}
	if resolved == nil {
		return bare
	}
	return resolved
}
