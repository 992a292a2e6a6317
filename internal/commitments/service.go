package commitments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/pkg/db"
	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// chatOpener hands out the chat channel stored on the commitment.
type chatOpener interface {
	OpenOrReuse(ctx context.Context, requestID, donorID, requesterID uuid.UUID) (string, error)
}

// notifier delivers one notification, best-effort.
type notifier interface {
	Send(ctx context.Context, notification models.Notification) error
}

// Service drives the commitment side of the lifecycle: the accept race, donor
// progress, cancellation with request reopening, and the donor/requester read
// models.
type Service interface {
	Accept(ctx context.Context, input AcceptInput) (*models.Commitment, error)
	Start(ctx context.Context, commitmentID, donorID uuid.UUID) (*models.Commitment, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Commitment, error)
	MarkPendingVerification(ctx context.Context, input MarkPendingVerificationInput) (*models.Commitment, error)
	ListActive(ctx context.Context, donorID uuid.UUID) ([]models.Commitment, error)
	ListPendingVerifications(ctx context.Context, requesterID uuid.UUID) ([]models.Commitment, error)
}

// AcceptInput is a donor's attempt to take a pending request.
type AcceptInput struct {
	RequestID uuid.UUID
	DonorID   uuid.UUID
	DonorName string
}

// CancelInput withdraws an active commitment with a mandatory reason.
type CancelInput struct {
	CommitmentID uuid.UUID
	DonorID      uuid.UUID
	Reason       string
}

// MarkPendingVerificationInput is the donor's claim that the donation happened.
type MarkPendingVerificationInput struct {
	CommitmentID uuid.UUID
	DonorID      uuid.UUID
	DonorNotes   *string
}

type service struct {
	repo     Repository
	requests requests.Repository
	tx       txRunner
	chat     chatOpener
	notify   notifier
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collect the commitment service dependencies.
type ServiceParams struct {
	Repo     Repository
	Requests requests.Repository
	Tx       txRunner
	Chat     chatOpener
	Notifier notifier
	Logger   *logger.Logger
}

// NewService wires the commitments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("commitments repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Chat == nil {
		return nil, fmt.Errorf("chat opener required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		requests: params.Requests,
		tx:       params.Tx,
		chat:     params.Chat,
		notify:   params.Notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Accept resolves the accept race. The winner is decided by a conditional
// update on the request status; a loser gets ConflictError and leaves no
// commitment row behind.
func (s *service) Accept(ctx context.Context, input AcceptInput) (*models.Commitment, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.DonorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	if strings.TrimSpace(input.DonorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor name required")
	}

	request, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID == input.DonorID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requesters cannot accept their own request")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already accepted")
	}

	active, err := s.repo.HasActiveForDonor(ctx, input.DonorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active commitments")
	}
	if active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "donor already has an active commitment")
	}

	// The chat channel is registered before the transaction: the registry is
	// idempotent per (request, donor, requester), so a lost race just leaves
	// an unused key behind.
	chatID, err := s.chat.OpenOrReuse(ctx, request.ID, input.DonorID, request.RequesterID)
	if err != nil {
		return nil, err
	}

	commitment := &models.Commitment{
		RequestID:       request.ID,
		DonorID:         input.DonorID,
		RequesterID:     request.RequesterID,
		BloodType:       request.BloodType,
		UnitsNeeded:     request.UnitsNeeded,
		UrgencyLevel:    request.UrgencyLevel,
		PatientName:     request.PatientName,
		HospitalName:    request.HospitalName,
		HospitalAddress: request.HospitalAddress,
		RequesterName:   request.RequesterName,
		RequesterPhone:  request.RequesterPhone,
		DonorName:       strings.TrimSpace(input.DonorName),
		ChatID:          chatID,
		AcceptedDate:    s.now().UTC(),
		Status:          enums.CommitmentStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.requests.WithTx(tx).MarkAccepted(ctx, request.ID, input.DonorID, commitment.DonorName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept blood request")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "request already accepted")
		}
		if err := s.repo.WithTx(tx).Create(ctx, commitment); err != nil {
			// The HasActiveForDonor precheck runs outside this transaction,
			// so two concurrent accepts by the same donor can both pass it.
			// The partial unique index on active commitments is the real
			// guard; surface its violation as the same conflict.
			if db.IsUniqueViolation(err, "idx_commitments_donor_active") {
				return pkgerrors.New(pkgerrors.CodeConflict, "donor already has an active commitment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commitment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendBestEffort(ctx, models.Notification{
		UserID:  request.RequesterID,
		Type:    enums.NotificationTypeSystemAlert,
		Title:   "Donor found",
		Message: fmt.Sprintf("%s accepted your %s request", commitment.DonorName, request.BloodType),
		Data: types.JSONMap{
			"requestId":    request.ID.String(),
			"commitmentId": commitment.ID.String(),
			"chatId":       chatID,
		},
	})

	return commitment, nil
}

// Start moves a pending commitment into in_progress. Donor-initiated only.
func (s *service) Start(ctx context.Context, commitmentID, donorID uuid.UUID) (*models.Commitment, error) {
	commitment, err := s.loadCommitmentForDonor(ctx, commitmentID, donorID)
	if err != nil {
		return nil, err
	}

	moved, err := s.repo.MarkInProgress(ctx, commitmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start commitment")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot start a commitment in state %q", commitment.Status))
	}

	commitment.Status = enums.CommitmentStatusInProgress
	return commitment, nil
}

// Cancel withdraws the donor's commitment and reopens the originating request
// so matching can resume. The requester is alerted after commit.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Commitment, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	commitment, err := s.loadCommitmentForDonor(ctx, input.CommitmentID, input.DonorID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cancelled, err := s.repo.WithTx(tx).Cancel(ctx, input.CommitmentID, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel commitment")
		}
		if !cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel a commitment in state %q", commitment.Status))
		}

		reopened, err := s.requests.WithTx(tx).Reopen(ctx, commitment.RequestID, commitment.DonorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen blood request")
		}
		if !reopened {
			logCtx := s.logg.WithField(ctx, "request_id", commitment.RequestID)
			s.logg.Warn(logCtx, "cancelled commitment left request unclaimed but not reopened")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	commitment.Status = enums.CommitmentStatusCancelled
	commitment.CancellationReason = &reason

	s.sendBestEffort(ctx, models.Notification{
		UserID:  commitment.RequesterID,
		Type:    enums.NotificationTypeSystemAlert,
		Title:   "Donor withdrew",
		Message: fmt.Sprintf("%s cancelled their commitment; your request is open again", commitment.DonorName),
		Data: types.JSONMap{
			"requestId":    commitment.RequestID.String(),
			"commitmentId": commitment.ID.String(),
			"reason":       reason,
		},
	})

	return commitment, nil
}

// MarkPendingVerification records the donor's completion claim and asks the
// requester to confirm. Points are not awarded here; verification gates them.
func (s *service) MarkPendingVerification(ctx context.Context, input MarkPendingVerificationInput) (*models.Commitment, error) {
	commitment, err := s.loadCommitmentForDonor(ctx, input.CommitmentID, input.DonorID)
	if err != nil {
		return nil, err
	}

	completedAt := s.now().UTC()
	moved, err := s.repo.MarkPendingVerification(ctx, input.CommitmentID, input.DonorNotes, completedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commitment for verification")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot request verification for a commitment in state %q", commitment.Status))
	}

	commitment.Status = enums.CommitmentStatusPendingVerification
	commitment.DonorCompletedAt = &completedAt
	if input.DonorNotes != nil {
		commitment.DonorNotes = input.DonorNotes
	}

	s.sendBestEffort(ctx, models.Notification{
		UserID:  commitment.RequesterID,
		Type:    enums.NotificationTypeVerifyDonation,
		Title:   "Verify donation",
		Message: fmt.Sprintf("%s marked the donation complete; please confirm", commitment.DonorName),
		Data: types.JSONMap{
			"requestId":    commitment.RequestID.String(),
			"commitmentId": commitment.ID.String(),
		},
	})

	return commitment, nil
}

func (s *service) ListActive(ctx context.Context, donorID uuid.UUID) ([]models.Commitment, error) {
	if donorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	rows, err := s.repo.ListActiveByDonor(ctx, donorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active commitments")
	}
	return rows, nil
}

func (s *service) ListPendingVerifications(ctx context.Context, requesterID uuid.UUID) ([]models.Commitment, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	rows, err := s.repo.ListPendingVerificationsByRequester(ctx, requesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending verifications")
	}
	return rows, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.BloodRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blood request")
	}
	return request, nil
}

func (s *service) loadCommitmentForDonor(ctx context.Context, commitmentID, donorID uuid.UUID) (*models.Commitment, error) {
	if commitmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commitment id required")
	}
	if donorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	commitment, err := s.repo.FindByID(ctx, commitmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commitment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commitment")
	}
	if commitment.DonorID != donorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the committed donor may do this")
	}
	return commitment, nil
}

func (s *service) sendBestEffort(ctx context.Context, notification models.Notification) {
	if err := s.notify.Send(ctx, notification); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": notification.UserID,
			"type":    notification.Type,
		})
		s.logg.Warn(logCtx, "notification dispatch failed")
	}
}
