package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openhema/bloodlink-backend/internal/commitments"
	"github.com/openhema/bloodlink-backend/internal/donations"
	"github.com/openhema/bloodlink-backend/internal/identity"
	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointsPerDonation is the fixed award for a verified donation.
const PointsPerDonation = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Send(ctx context.Context, notification models.Notification) error
}

// Service closes the two-phase donation protocol: the requester either
// verifies the donor's claim, which writes the ledger and awards points, or
// disputes it, which parks the commitment for human resolution.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*models.Commitment, error)
	Dispute(ctx context.Context, input DisputeInput) (*models.Commitment, error)
}

// VerifyInput is the requester's confirmation that the donation happened.
type VerifyInput struct {
	CommitmentID uuid.UUID
	VerifierID   uuid.UUID
	Notes        *string
}

// DisputeInput is the requester's rejection of the donor's claim.
type DisputeInput struct {
	CommitmentID uuid.UUID
	VerifierID   uuid.UUID
	Reason       string
}

type service struct {
	commitments commitments.Repository
	requests    requests.Repository
	identity    identity.Repository
	ledger      donations.Repository
	tx          txRunner
	notify      notifier
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams collect the verification service dependencies.
type ServiceParams struct {
	Commitments commitments.Repository
	Requests    requests.Repository
	Identity    identity.Repository
	Ledger      donations.Repository
	Tx          txRunner
	Notifier    notifier
	Logger      *logger.Logger
}

// NewService wires the verification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Commitments == nil {
		return nil, fmt.Errorf("commitments repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		commitments: params.Commitments,
		requests:    params.Requests,
		identity:    params.Identity,
		ledger:      params.Ledger,
		tx:          params.Tx,
		notify:      params.Notifier,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Verify completes the commitment, writes the ledger row, credits the donor
// and closes the request, all in one transaction. Re-running it against an
// already completed commitment is a no-op success; the compare-and-set on
// pending_verification makes a concurrent retry lose before it can write a
// second ledger row.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Commitment, error) {
	commitment, err := s.loadForVerifier(ctx, input.CommitmentID, input.VerifierID)
	if err != nil {
		return nil, err
	}

	if commitment.Status == enums.CommitmentStatusCompleted {
		return commitment, nil
	}
	if commitment.Status != enums.CommitmentStatusPendingVerification {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot verify a commitment in state %q", commitment.Status))
	}

	now := s.now().UTC()
	donationDate := now
	if commitment.DonorCompletedAt != nil {
		donationDate = *commitment.DonorCompletedAt
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.commitments.WithTx(tx).Complete(ctx, commitment.ID, input.Notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete commitment")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commitment is no longer awaiting verification")
		}

		record := &models.DonationRecord{
			CommitmentID: commitment.ID,
			DonorID:      commitment.DonorID,
			BloodType:    commitment.BloodType,
			DonationDate: donationDate,
			PointsEarned: PointsPerDonation,
		}
		if err := s.ledger.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write donation record")
		}

		if err := s.identity.WithTx(tx).ApplyDonationCredit(ctx, commitment.DonorID, PointsPerDonation, donationDate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit donor")
		}

		closed, err := s.requests.WithTx(tx).Complete(ctx, commitment.RequestID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete blood request")
		}
		if !closed {
			logCtx := s.logg.WithField(ctx, "request_id", commitment.RequestID)
			s.logg.Warn(logCtx, "verified commitment but request was not in accepted state")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	commitment.Status = enums.CommitmentStatusCompleted
	if input.Notes != nil {
		commitment.Notes = input.Notes
	}

	s.sendBestEffort(ctx, models.Notification{
		UserID:  commitment.DonorID,
		Type:    enums.NotificationTypeDonationVerified,
		Title:   "Donation verified",
		Message: fmt.Sprintf("%s confirmed your donation; %d points awarded", commitment.RequesterName, PointsPerDonation),
		Data: types.JSONMap{
			"requestId":    commitment.RequestID.String(),
			"commitmentId": commitment.ID.String(),
			"points":       PointsPerDonation,
		},
	})

	return commitment, nil
}

// Dispute is terminal: no ledger write, no points, requires support to
// resolve out of band.
func (s *service) Dispute(ctx context.Context, input DisputeInput) (*models.Commitment, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	commitment, err := s.loadForVerifier(ctx, input.CommitmentID, input.VerifierID)
	if err != nil {
		return nil, err
	}
	if commitment.Status != enums.CommitmentStatusPendingVerification {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot dispute a commitment in state %q", commitment.Status))
	}

	moved, err := s.commitments.Dispute(ctx, commitment.ID, reason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispute commitment")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "commitment is no longer awaiting verification")
	}

	commitment.Status = enums.CommitmentStatusDisputed
	commitment.DisputeReason = &reason

	s.sendBestEffort(ctx, models.Notification{
		UserID:  commitment.DonorID,
		Type:    enums.NotificationTypeDonationDisputed,
		Title:   "Donation disputed",
		Message: fmt.Sprintf("%s disputed your donation claim", commitment.RequesterName),
		Data: types.JSONMap{
			"requestId":    commitment.RequestID.String(),
			"commitmentId": commitment.ID.String(),
			"reason":       reason,
		},
	})

	return commitment, nil
}

func (s *service) loadForVerifier(ctx context.Context, commitmentID, verifierID uuid.UUID) (*models.Commitment, error) {
	if commitmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commitment id required")
	}
	if verifierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verifier id required")
	}
	commitment, err := s.commitments.FindByID(ctx, commitmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commitment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commitment")
	}
	if commitment.RequesterID != verifierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester may verify this donation")
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
