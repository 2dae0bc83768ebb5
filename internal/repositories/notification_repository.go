package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository is an append-only store queried by recipient
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID uint) ([]models.Notification, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translateError(conn(ctx, r.db).Create(notification).Error)
}

// GetByRecipientID returns the recipient's notifications, newest first
func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := conn(ctx, r.db).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id DESC").
		Find(&notifications).Error
	return notifications, err
}
