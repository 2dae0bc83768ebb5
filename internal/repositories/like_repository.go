package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// CreateLike inserts the like unless the (user, post) pair already exists.
	// created reports whether this call performed the insert.
	CreateLike(ctx context.Context, like *models.Like) (created bool, err error)
	DeleteLike(ctx context.Context, postID string, userID uint) (deleted bool, err error)
	DeleteLikesByPostID(ctx context.Context, postID string) (int64, error)
	GetLikesCountByPostID(ctx context.Context, postID string) (int64, error)
	HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike relies on the unique (user_id, post_id) index, so two racing
// calls cannot both report created.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(like)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteLike deletes a like from PostgreSQL
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, postID string, userID uint) (bool, error) {
	res := conn(ctx, r.db).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteLikesByPostID removes every like of a post
func (r *PostgresLikeRepository) DeleteLikesByPostID(ctx context.Context, postID string) (int64, error) {
	res := conn(ctx, r.db).Where("post_id = ?", postID).Delete(&models.Like{})
	return res.RowsAffected, res.Error
}

// GetLikesCountByPostID retrieves the count of likes for a specific post from PostgreSQL
func (r *PostgresLikeRepository) GetLikesCountByPostID(ctx context.Context, postID string) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Like{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
