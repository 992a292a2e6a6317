package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestTTL is how long a pending request stays open for matching.
const RequestTTL = 24 * time.Hour

const (
	minUnitsNeeded = 1
	maxUnitsNeeded = 10
)

// matcher fans a new request out to compatible donors.
type matcher interface {
	NotifyMatches(ctx context.Context, request *models.BloodRequest) (int, error)
}

// Service defines request creation and the request read models.
type Service interface {
	Create(ctx context.Context, input CreateRequestInput) (*models.BloodRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error)
	ListOpen(ctx context.Context, params ListOpenParams) (*RequestList, error)
	ListByRequester(ctx context.Context, params ListByRequesterParams) (*RequestList, error)
}

type service struct {
	repo    Repository
	matcher matcher
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the requests service.
func NewService(repo Repository, m matcher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if m == nil {
		return nil, fmt.Errorf("matcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, matcher: m, logg: logg, now: time.Now}, nil
}

// Create validates and persists a new request, then best-effort fans it out
// to matching donors. Fan-out failure never fails the create.
func (s *service) Create(ctx context.Context, input CreateRequestInput) (*models.BloodRequest, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	request := &models.BloodRequest{
		RequesterID:     input.RequesterID,
		RequesterName:   strings.TrimSpace(input.RequesterName),
		RequesterPhone:  strings.TrimSpace(input.RequesterPhone),
		BloodType:       input.BloodType,
		UrgencyLevel:    input.UrgencyLevel,
		PatientName:     strings.TrimSpace(input.PatientName),
		HospitalName:    strings.TrimSpace(input.HospitalName),
		HospitalAddress: strings.TrimSpace(input.HospitalAddress),
		Location:        input.Location,
		UnitsNeeded:     input.UnitsNeeded,
		Description:     strings.TrimSpace(input.Description),
		Status:          enums.RequestStatusPending,
		ExpiresAt:       now.Add(RequestTTL),
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create blood request")
	}

	notified, err := s.matcher.NotifyMatches(ctx, request)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"request_id": request.ID,
		"blood_type": request.BloodType,
		"notified":   notified,
	})
	if err != nil {
		s.logg.Warn(logCtx, "donor fan-out incomplete")
	} else {
		s.logg.Info(logCtx, "blood request created")
	}

	return request, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blood request")
	}
	return request, nil
}

func (s *service) ListOpen(ctx context.Context, params ListOpenParams) (*RequestList, error) {
	if params.BloodType != nil && !params.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid blood type %q", *params.BloodType))
	}
	query := ListFilters{
		BloodType: params.BloodType,
		Limit:     params.Limit,
		Now:       s.now().UTC(),
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query.Cursor = cursor

	rows, next, err := s.repo.ListOpen(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open requests")
	}
	return buildList(rows, next), nil
}

func (s *service) ListByRequester(ctx context.Context, params ListByRequesterParams) (*RequestList, error) {
	if params.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	query := ListFilters{Limit: params.Limit, Now: s.now().UTC()}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query.Cursor = cursor

	rows, next, err := s.repo.ListByRequester(ctx, params.RequesterID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requester requests")
	}
	return buildList(rows, next), nil
}

func parseCursor(raw string) (*pagination.Cursor, error) {
	if raw == "" {
		return nil, nil
	}
	cursor, err := pagination.ParseCursor(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func buildList(rows []models.BloodRequest, next *pagination.Cursor) *RequestList {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &RequestList{Items: rows, Cursor: cursor}
}

func validateCreate(input CreateRequestInput) error {
	if input.RequesterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	if !input.BloodType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid blood type %q", input.BloodType))
	}
	if !input.UrgencyLevel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid urgency level %q", input.UrgencyLevel))
	}
	if input.UnitsNeeded < minUnitsNeeded || input.UnitsNeeded > maxUnitsNeeded {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("units needed must be between %d and %d", minUnitsNeeded, maxUnitsNeeded))
	}
	required := map[string]string{
		"requester name":   input.RequesterName,
		"requester phone":  input.RequesterPhone,
		"patient name":     input.PatientName,
		"hospital name":    input.HospitalName,
		"hospital address": input.HospitalAddress,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" required")
		}
	}
	if input.Location.Latitude < -90 || input.Location.Latitude > 90 ||
		input.Location.Longitude < -180 || input.Location.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "location coordinates out of range")
	}
	if input.Location.Latitude == 0 && input.Location.Longitude == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	return nil
}
