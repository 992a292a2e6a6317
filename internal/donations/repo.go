package donations

import (
	"context"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the append-only donation ledger. Records are inserted once by
// verification and never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.DonationRecord) error
	FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*models.DonationRecord, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, from, to *time.Time) ([]models.DonationRecord, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs a ledger repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, record *models.DonationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repositoryImpl) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*models.DonationRecord, error) {
	var record models.DonationRecord
	if err := r.db.WithContext(ctx).First(&record, "commitment_id = ?", commitmentID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) ListByDonor(ctx context.Context, donorID uuid.UUID, from, to *time.Time) ([]models.DonationRecord, error) {
	query := r.db.WithContext(ctx).Where("donor_id = ?", donorID)
	if from != nil {
		query = query.Where("donation_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("donation_date < ?", *to)
	}

	var rows []models.DonationRecord
	if err := query.Order("donation_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
