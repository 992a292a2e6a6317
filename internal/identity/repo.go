package identity

import (
	"context"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes the user reads and aggregate writes the lifecycle
// engine needs. Account management is owned by another service; this repo
// never creates or deletes users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAvailableDonors(ctx context.Context, bloodType enums.BloodType) ([]models.User, error)
	ApplyDonationCredit(ctx context.Context, donorID uuid.UUID, points int, donatedAt time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs an identity repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindByID loads a user by their UUID.
func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAvailableDonors returns active donors with the exact blood type who have
// opted into availability.
func (r *repositoryImpl) FindAvailableDonors(ctx context.Context, bloodType enums.BloodType) ([]models.User, error) {
	var donors []models.User
	err := r.db.WithContext(ctx).
		Where("user_type = ?", enums.UserTypeDonor).
		Where("blood_type = ?", bloodType).
		Where("is_available = ?", true).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&donors).Error
	if err != nil {
		return nil, err
	}
	return donors, nil
}

// ApplyDonationCredit increments the donor's points and donation count and
// stamps the donation date. Callers run it inside the verification
// transaction so the ledger row and the aggregates move together.
func (r *repositoryImpl) ApplyDonationCredit(ctx context.Context, donorID uuid.UUID, points int, donatedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", donorID).
		UpdateColumns(map[string]any{
			"points":             gorm.Expr("points + ?", points),
			"total_donations":    gorm.Expr("total_donations + ?", 1),
			"last_donation_date": donatedAt,
		}).Error
}
