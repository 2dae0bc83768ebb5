package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"gorm.io/gorm"
)

// ProfileRepository stores the per-user profile row holding the role
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	// SaveRole updates the role and keeps users.is_staff in step with it.
	SaveRole(ctx context.Context, userID uint, role models.Role) (*models.Profile, error)
}

type PostgresProfileRepository struct {
	db *gorm.DB
}

func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	return translateError(conn(ctx, r.db).Create(profile).Error)
}

func (r *PostgresProfileRepository) GetProfileByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}

func (r *PostgresProfileRepository) SaveRole(ctx context.Context, userID uint, role models.Role) (*models.Profile, error) {
	var profile models.Profile
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return err
		}
		profile.Role = role
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("is_staff", role == models.RoleAdmin).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}
