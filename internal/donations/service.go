package donations

import (
	"context"
	"fmt"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/google/uuid"
)

// YearFilter narrows donor history to a calendar-year window.
type YearFilter string

const (
	YearFilterAll      YearFilter = "all"
	YearFilterThisYear YearFilter = "this_year"
	YearFilterLastYear YearFilter = "last_year"
)

// HistoryParams select a donor's ledger slice.
type HistoryParams struct {
	DonorID uuid.UUID
	Filter  YearFilter
}

// HistoryTotals are derived aggregates over the filtered records.
type HistoryTotals struct {
	Donations int `json:"donations"`
	Units     int `json:"units"`
	Points    int `json:"points"`
}

// History is the donor-facing ledger view.
type History struct {
	Records []models.DonationRecord `json:"records"`
	Totals  HistoryTotals           `json:"totals"`
}

// Service exposes the donation ledger read model.
type Service interface {
	History(ctx context.Context, params HistoryParams) (*History, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the donations read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*History, error) {
	if params.DonorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}

	from, to, err := yearWindow(params.Filter, s.now().UTC())
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListByDonor(ctx, params.DonorID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donation history")
	}

	return &History{
		Records: records,
		Totals:  Reduce(records),
	}, nil
}

// Reduce folds ledger rows into the aggregate totals. Units are only counted
// where the blood bank recorded them.
func Reduce(records []models.DonationRecord) HistoryTotals {
	totals := HistoryTotals{Donations: len(records)}
	for _, record := range records {
		totals.Points += record.PointsEarned
		if record.UnitsCollected != nil {
			totals.Units += *record.UnitsCollected
		}
	}
	return totals
}

func yearWindow(filter YearFilter, now time.Time) (*time.Time, *time.Time, error) {
	switch filter {
	case "", YearFilterAll:
		return nil, nil, nil
	case YearFilterThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		return &start, &end, nil
	case YearFilterLastYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		return &start, &end, nil
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid year filter %q", filter))
	}
}
