package commitments

import (
	"context"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes commitment persistence. Status moves are conditional
// updates keyed on the current status so concurrent donor and requester
// actions cannot produce back-transitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commitment *models.Commitment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commitment, error)
	HasActiveForDonor(ctx context.Context, donorID uuid.UUID) (bool, error)
	MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkPendingVerification(ctx context.Context, id uuid.UUID, donorNotes *string, completedAt time.Time) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, notes *string) (bool, error)
	Dispute(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	ListActiveByDonor(ctx context.Context, donorID uuid.UUID) ([]models.Commitment, error)
	ListPendingVerificationsByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Commitment, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs a commitments repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, commitment *models.Commitment) error {
	return r.db.WithContext(ctx).Create(commitment).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
	var commitment models.Commitment
	if err := r.db.WithContext(ctx).First(&commitment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &commitment, nil
}

func (r *repositoryImpl) HasActiveForDonor(ctx context.Context, donorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("donor_id = ?", donorID).
		Where("status IN ?", enums.ActiveCommitmentStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("id = ? AND status = ?", id, enums.CommitmentStatusPending).
		UpdateColumn("status", enums.CommitmentStatusInProgress)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Cancel(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("id = ? AND status IN ?", id, []enums.CommitmentStatus{
			enums.CommitmentStatusPending,
			enums.CommitmentStatusInProgress,
		}).
		UpdateColumns(map[string]any{
			"status":              enums.CommitmentStatusCancelled,
			"cancellation_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkPendingVerification(ctx context.Context, id uuid.UUID, donorNotes *string, completedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":             enums.CommitmentStatusPendingVerification,
		"donor_completed_at": completedAt,
	}
	if donorNotes != nil {
		updates["donor_notes"] = *donorNotes
	}
	result := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("id = ? AND status IN ?", id, []enums.CommitmentStatus{
			enums.CommitmentStatusPending,
			enums.CommitmentStatusInProgress,
		}).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Complete(ctx context.Context, id uuid.UUID, notes *string) (bool, error) {
	updates := map[string]any{"status": enums.CommitmentStatusCompleted}
	if notes != nil {
		updates["notes"] = *notes
	}
	result := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("id = ? AND status = ?", id, enums.CommitmentStatusPendingVerification).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Dispute(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Commitment{}).
		Where("id = ? AND status = ?", id, enums.CommitmentStatusPendingVerification).
		UpdateColumns(map[string]any{
			"status":         enums.CommitmentStatusDisputed,
			"dispute_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListActiveByDonor(ctx context.Context, donorID uuid.UUID) ([]models.Commitment, error) {
	var rows []models.Commitment
	err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Where("status IN ?", enums.ActiveCommitmentStatuses).
		Order("accepted_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListPendingVerificationsByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Commitment, error) {
	var rows []models.Commitment
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Where("status = ?", enums.CommitmentStatusPendingVerification).
		Order("accepted_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
