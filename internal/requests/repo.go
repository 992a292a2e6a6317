package requests

import (
	"context"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes blood request persistence. Every status write is a
// conditional update so concurrent actors cannot skip states.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.BloodRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error)
	ListOpen(ctx context.Context, params ListFilters) ([]models.BloodRequest, *pagination.Cursor, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, params ListFilters) ([]models.BloodRequest, *pagination.Cursor, error)
	MarkAccepted(ctx context.Context, requestID, donorID uuid.UUID, donorName string) (bool, error)
	Reopen(ctx context.Context, requestID, donorID uuid.UUID) (bool, error)
	Complete(ctx context.Context, requestID uuid.UUID, completedAt time.Time) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]models.BloodRequest, error)
	CancelExpired(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs a requests repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListFilters are the repository-level inputs shared by the request lists.
type ListFilters struct {
	BloodType *enums.BloodType
	Limit     int
	Cursor    *pagination.Cursor
	Now       time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.BloodRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	var request models.BloodRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ListOpen returns pending, unexpired requests newest first for the donor feed.
func (r *repositoryImpl) ListOpen(ctx context.Context, params ListFilters) ([]models.BloodRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("status = ?", enums.RequestStatusPending).
		Where("expires_at > ?", params.Now)
	if params.BloodType != nil {
		query = query.Where("blood_type = ?", *params.BloodType)
	}
	return r.page(query, params)
}

func (r *repositoryImpl) ListByRequester(ctx context.Context, requesterID uuid.UUID, params ListFilters) ([]models.BloodRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("requester_id = ?", requesterID)
	return r.page(query, params)
}

func (r *repositoryImpl) page(query *gorm.DB, params ListFilters) ([]models.BloodRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.BloodRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// MarkAccepted performs the accept compare-and-swap. It only succeeds while
// the request is still pending; the caller uses the returned bool to detect
// a lost race.
func (r *repositoryImpl) MarkAccepted(ctx context.Context, requestID, donorID uuid.UUID, donorName string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", requestID, enums.RequestStatusPending).
		UpdateColumns(map[string]any{
			"status":              enums.RequestStatusAccepted,
			"accepted_donor_id":   donorID,
			"accepted_donor_name": donorName,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Reopen puts an accepted request back into the matching pool after its
// committed donor cancels. Conditioned on the donor still being the accepted
// one so a stale cancel cannot clobber a newer acceptance.
func (r *repositoryImpl) Reopen(ctx context.Context, requestID, donorID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Where("id = ? AND status = ? AND accepted_donor_id = ?", requestID, enums.RequestStatusAccepted, donorID).
		UpdateColumns(map[string]any{
			"status":              enums.RequestStatusPending,
			"accepted_donor_id":   nil,
			"accepted_donor_name": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Complete(ctx context.Context, requestID uuid.UUID, completedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", requestID, enums.RequestStatusAccepted).
		UpdateColumns(map[string]any{
			"status":       enums.RequestStatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindExpired returns pending requests whose expiry has passed, oldest first.
func (r *repositoryImpl) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.BloodRequest, error) {
	var rows []models.BloodRequest
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.RequestStatusPending).
		Where("expires_at <= ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CancelExpired moves the given requests to cancelled, skipping any that were
// accepted between the scan and the write.
func (r *repositoryImpl) CancelExpired(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Where("id IN ? AND status = ? AND expires_at <= ?", ids, enums.RequestStatusPending, now).
		UpdateColumn("status", enums.RequestStatusCancelled)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
