package verification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/openhema/bloodlink-backend/internal/commitments"
	"github.com/openhema/bloodlink-backend/internal/donations"
	"github.com/openhema/bloodlink-backend/internal/identity"
	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	paginationpkg "github.com/openhema/bloodlink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeCommitments struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*models.Commitment, error)
	completeFn func(ctx context.Context, id uuid.UUID, notes *string) (bool, error)
	disputeFn  func(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

func (f *fakeCommitments) WithTx(tx *gorm.DB) commitments.Repository { return f }

func (f *fakeCommitments) Create(ctx context.Context, commitment *models.Commitment) error {
	return nil
}

func (f *fakeCommitments) FindByID(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCommitments) HasActiveForDonor(ctx context.Context, donorID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeCommitments) MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}

func (f *fakeCommitments) Cancel(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return true, nil
}

func (f *fakeCommitments) MarkPendingVerification(ctx context.Context, id uuid.UUID, donorNotes *string, completedAt time.Time) (bool, error) {
	return true, nil
}

func (f *fakeCommitments) Complete(ctx context.Context, id uuid.UUID, notes *string) (bool, error) {
	if f.completeFn != nil {
		return f.completeFn(ctx, id, notes)
	}
	return true, nil
}

func (f *fakeCommitments) Dispute(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	if f.disputeFn != nil {
		return f.disputeFn(ctx, id, reason)
	}
	return true, nil
}

func (f *fakeCommitments) ListActiveByDonor(ctx context.Context, donorID uuid.UUID) ([]models.Commitment, error) {
	return nil, nil
}

func (f *fakeCommitments) ListPendingVerificationsByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Commitment, error) {
	return nil, nil
}

type fakeRequests struct {
	completeFn    func(ctx context.Context, requestID uuid.UUID, completedAt time.Time) (bool, error)
	completeCalls int
}

func (f *fakeRequests) WithTx(tx *gorm.DB) requests.Repository { return f }

func (f *fakeRequests) Create(ctx context.Context, request *models.BloodRequest) error { return nil }

func (f *fakeRequests) FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequests) ListOpen(ctx context.Context, params requests.ListFilters) ([]models.BloodRequest, *paginationpkg.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRequests) ListByRequester(ctx context.Context, requesterID uuid.UUID, params requests.ListFilters) ([]models.BloodRequest, *paginationpkg.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRequests) MarkAccepted(ctx context.Context, requestID, donorID uuid.UUID, donorName string) (bool, error) {
	return true, nil
}

func (f *fakeRequests) Reopen(ctx context.Context, requestID, donorID uuid.UUID) (bool, error) {
	return true, nil
}

func (f *fakeRequests) Complete(ctx context.Context, requestID uuid.UUID, completedAt time.Time) (bool, error) {
	f.completeCalls++
	if f.completeFn != nil {
		return f.completeFn(ctx, requestID, completedAt)
	}
	return true, nil
}

func (f *fakeRequests) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.BloodRequest, error) {
	return nil, nil
}

func (f *fakeRequests) CancelExpired(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	return 0, nil
}

type fakeIdentity struct {
	creditFn    func(ctx context.Context, donorID uuid.UUID, points int, donatedAt time.Time) error
	creditCalls int
}

func (f *fakeIdentity) WithTx(tx *gorm.DB) identity.Repository { return f }

func (f *fakeIdentity) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIdentity) FindAvailableDonors(ctx context.Context, bloodType enums.BloodType) ([]models.User, error) {
	return nil, nil
}

func (f *fakeIdentity) ApplyDonationCredit(ctx context.Context, donorID uuid.UUID, points int, donatedAt time.Time) error {
	f.creditCalls++
	if f.creditFn != nil {
		return f.creditFn(ctx, donorID, points, donatedAt)
	}
	return nil
}

type fakeLedger struct {
	createFn func(ctx context.Context, record *models.DonationRecord) error
	created  *models.DonationRecord
}

func (f *fakeLedger) WithTx(tx *gorm.DB) donations.Repository { return f }

func (f *fakeLedger) Create(ctx context.Context, record *models.DonationRecord) error {
	f.created = record
	if f.createFn != nil {
		return f.createFn(ctx, record)
	}
	return nil
}

func (f *fakeLedger) FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*models.DonationRecord, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedger) ListByDonor(ctx context.Context, donorID uuid.UUID, from, to *time.Time) ([]models.DonationRecord, error) {
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeNotifier struct {
	sent []models.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, notification models.Notification) error {
	f.sent = append(f.sent, notification)
	return nil
}

type deps struct {
	commitments *fakeCommitments
	requests    *fakeRequests
	identity    *fakeIdentity
	ledger      *fakeLedger
	notify      *fakeNotifier
}

func newTestService(t *testing.T, d deps) (*service, deps) {
	t.Helper()
	if d.commitments == nil {
		d.commitments = &fakeCommitments{}
	}
	if d.requests == nil {
		d.requests = &fakeRequests{}
	}
	if d.identity == nil {
		d.identity = &fakeIdentity{}
	}
	if d.ledger == nil {
		d.ledger = &fakeLedger{}
	}
	if d.notify == nil {
		d.notify = &fakeNotifier{}
	}
	svc, err := NewService(ServiceParams{
		Commitments: d.commitments,
		Requests:    d.requests,
		Identity:    d.identity,
		Ledger:      d.ledger,
		Tx:          fakeTxRunner{},
		Notifier:    d.notify,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc.(*service), d
}

func pendingVerification(requesterID uuid.UUID) *models.Commitment {
	completedAt := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	return &models.Commitment{
		ID:               uuid.New(),
		RequestID:        uuid.New(),
		DonorID:          uuid.New(),
		RequesterID:      requesterID,
		BloodType:        enums.BloodTypeOPos,
		RequesterName:    "Amina Yusuf",
		DonorName:        "Dan Okafor",
		Status:           enums.CommitmentStatusPendingVerification,
		DonorCompletedAt: &completedAt,
	}
}

func TestService_Verify(t *testing.T) {
	requesterID := uuid.New()
	commitment := pendingVerification(requesterID)
	svc, d := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
		},
	})

	verified, err := svc.Verify(context.Background(), VerifyInput{
		CommitmentID: commitment.ID,
		VerifierID:   requesterID,
	})
	if err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if verified.Status != enums.CommitmentStatusCompleted {
		t.Fatalf("expected completed, got %s", verified.Status)
	}

	record := d.ledger.created
	if record == nil {
		t.Fatal("expected ledger record")
	}
	if record.PointsEarned != PointsPerDonation {
		t.Fatalf("expected %d points, got %d", PointsPerDonation, record.PointsEarned)
	}
	if record.CommitmentID != commitment.ID || record.DonorID != commitment.DonorID {
		t.Fatal("ledger record keyed incorrectly")
	}
	if !record.DonationDate.Equal(*commitment.DonorCompletedAt) {
		t.Fatalf("expected donation date from donor claim, got %s", record.DonationDate)
	}
	if d.identity.creditCalls != 1 {
		t.Fatalf("expected 1 credit call, got %d", d.identity.creditCalls)
	}
	if d.requests.completeCalls != 1 {
		t.Fatalf("expected request completion, got %d calls", d.requests.completeCalls)
	}
	if len(d.notify.sent) != 1 || d.notify.sent[0].Type != enums.NotificationTypeDonationVerified {
		t.Fatal("expected donation_verified notification to donor")
	}
	if d.notify.sent[0].UserID != commitment.DonorID {
		t.Fatal("notification must address the donor")
	}
}

func TestService_VerifyIdempotentOnCompleted(t *testing.T) {
	requesterID := uuid.New()
	commitment := pendingVerification(requesterID)
	commitment.Status = enums.CommitmentStatusCompleted
	svc, d := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
		},
	})

	verified, err := svc.Verify(context.Background(), VerifyInput{
		CommitmentID: commitment.ID,
		VerifierID:   requesterID,
	})
	if err != nil {
		t.Fatalf("re-verifying a completed commitment must be a no-op, got %v", err)
	}
	if verified.Status != enums.CommitmentStatusCompleted {
		t.Fatalf("unexpected status %s", verified.Status)
	}
	if d.ledger.created != nil {
		t.Fatal("no second ledger record")
	}
	if d.identity.creditCalls != 0 {
		t.Fatal("no second points credit")
	}
}

func TestService_VerifyLedgerWriteFails(t *testing.T) {
	requesterID := uuid.New()
	commitment := pendingVerification(requesterID)
	svc, d := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
		},
		ledger: &fakeLedger{
			createFn: func(ctx context.Context, record *models.DonationRecord) error {
				return errors.New(`duplicate key value violates unique constraint "donation_records_commitment_id_key"`)
			},
		},
	})

	_, err := svc.Verify(context.Background(), VerifyInput{
		CommitmentID: commitment.ID,
		VerifierID:   requesterID,
	})
	if err == nil {
		t.Fatal("a failed ledger write must abort verification")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %s", code)
	}
	if d.identity.creditCalls != 0 {
		t.Fatal("an aborted verification must not credit points")
	}
}

func TestService_VerifyWrongVerifier(t *testing.T) {
	commitment := pendingVerification(uuid.New())
	svc, _ := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
		},
	})

	_, err := svc.Verify(context.Background(), VerifyInput{
		CommitmentID: commitment.ID,
		VerifierID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected forbidden")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", code)
	}
}

func TestService_VerifyWrongState(t *testing.T) {
	requesterID := uuid.New()
	for _, status := range []enums.CommitmentStatus{
		enums.CommitmentStatusPending,
		enums.CommitmentStatusInProgress,
		enums.CommitmentStatusCancelled,
		enums.CommitmentStatusDisputed,
	} {
		commitment := pendingVerification(requesterID)
		commitment.Status = status
		svc, d := newTestService(t, deps{
			commitments: &fakeCommitments{
				findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
					return commitment, nil
				},
			},
		})

		_, err := svc.Verify(context.Background(), VerifyInput{
			CommitmentID: commitment.ID,
			VerifierID:   requesterID,
		})
		if err == nil {
			t.Fatalf("%s: expected state conflict", status)
		}
		if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
			t.Fatalf("%s: expected state conflict, got %s", status, code)
		}
		if d.ledger.created != nil || d.identity.creditCalls != 0 {
			t.Fatalf("%s: no ledger or points writes allowed", status)
		}
	}
}

func TestService_VerifyLostRace(t *testing.T) {
	requesterID := uuid.New()
	commitment := pendingVerification(requesterID)
	svc, d := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
			completeFn: func(ctx context.Context, id uuid.UUID, notes *string) (bool, error) {
				return false, nil
			},
		},
	})

	_, err := svc.Verify(context.Background(), VerifyInput{
		CommitmentID: commitment.ID,
		VerifierID:   requesterID,
	})
	if err == nil {
		t.Fatal("expected state conflict after losing the write race")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if d.ledger.created != nil {
		t.Fatal("lost race must not write the ledger")
	}
}

func TestService_Dispute(t *testing.T) {
	requesterID := uuid.New()
	commitment := pendingVerification(requesterID)
	svc, d := newTestService(t, deps{
		commitments: &fakeCommitments{
			findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
				return commitment, nil
			},
		},
	})

	disputed, err := svc.Dispute(context.Background(), DisputeInput{
		CommitmentID: commitment.ID,
		VerifierID:   requesterID,
		Reason:       "wrong blood type",
	})
	if err != nil {
		t.Fatalf("unexpected dispute error: %v", err)
	}
	if disputed.Status != enums.CommitmentStatusDisputed {
		t.Fatalf("expected disputed, got %s", disputed.Status)
	}
	if d.ledger.created != nil || d.identity.creditCalls != 0 {
		t.Fatal("disputes must not touch the ledger or points")
	}
	if len(d.notify.sent) != 1 || d.notify.sent[0].Type != enums.NotificationTypeDonationDisputed {
		t.Fatal("expected donation_disputed notification to donor")
	}
}

func TestService_DisputeRequiresReason(t *testing.T) {
	svc, _ := newTestService(t, deps{})
	_, err := svc.Dispute(context.Background(), DisputeInput{
		CommitmentID: uuid.New(),
		VerifierID:   uuid.New(),
		Reason:       "  ",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestService_DisputeNotFound(t *testing.T) {
	svc, _ := newTestService(t, deps{})
	_, err := svc.Dispute(context.Background(), DisputeInput{
		CommitmentID: uuid.New(),
		VerifierID:   uuid.New(),
		Reason:       "no show",
	})
	if err == nil {
		t.Fatal("expected not found")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
}
