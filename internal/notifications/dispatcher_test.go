package notifications

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type fakePush struct {
	mu       sync.Mutex
	payloads [][]byte
	attrs    []map[string]string
	err      error
}

func (f *fakePush) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, data)
	f.attrs = append(f.attrs, attributes)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestDispatcher(t *testing.T, repo Repository, push pushPublisher, concurrency int) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherParams{
		Repo:        repo,
		Push:        push,
		Logger:      testLogger(),
		Concurrency: concurrency,
	})
	if err != nil {
		t.Fatalf("unexpected dispatcher error: %v", err)
	}
	return dispatcher
}

func TestDispatcher_Send(t *testing.T) {
	var stored *models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			stored = notification
			return nil
		},
	}
	push := &fakePush{}
	dispatcher := newTestDispatcher(t, repo, push, 0)

	userID := uuid.New()
	err := dispatcher.Send(context.Background(), models.Notification{
		UserID:  userID,
		Type:    enums.NotificationTypeBloodRequest,
		Title:   "Urgent blood request",
		Message: "A nearby request matches your blood type",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if stored == nil || stored.UserID != userID {
		t.Fatal("expected notification to be persisted")
	}
	if len(push.payloads) != 1 {
		t.Fatalf("expected 1 push publish, got %d", len(push.payloads))
	}
	if push.attrs[0]["type"] != string(enums.NotificationTypeBloodRequest) {
		t.Fatalf("unexpected push type attribute %q", push.attrs[0]["type"])
	}
}

func TestDispatcher_SendRejectsInvalid(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeRepository{}, nil, 0)

	err := dispatcher.Send(context.Background(), models.Notification{Type: enums.NotificationTypeBloodRequest})
	if err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}

	err = dispatcher.Send(context.Background(), models.Notification{UserID: uuid.New(), Type: "nonsense"})
	if err == nil {
		t.Fatal("expected error for invalid type")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestDispatcher_SendStoreFailure(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			return errors.New("db down")
		},
	}
	dispatcher := newTestDispatcher(t, repo, nil, 0)

	err := dispatcher.Send(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   enums.NotificationTypeSystemAlert,
	})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %s", code)
	}
}

func TestDispatcher_SendPushFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepository{}
	push := &fakePush{err: errors.New("broker unreachable")}
	dispatcher := newTestDispatcher(t, repo, push, 0)

	err := dispatcher.Send(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   enums.NotificationTypeBloodRequest,
	})
	if err != nil {
		t.Fatalf("push failure must not surface, got %v", err)
	}
}

func TestDispatcher_SendBatch(t *testing.T) {
	var (
		mu     sync.Mutex
		stored []uuid.UUID
	)
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			mu.Lock()
			defer mu.Unlock()
			stored = append(stored, notification.UserID)
			return nil
		},
	}
	dispatcher := newTestDispatcher(t, repo, nil, 3)

	batch := make([]models.Notification, 10)
	for i := range batch {
		batch[i] = models.Notification{UserID: uuid.New(), Type: enums.NotificationTypeBloodRequest}
	}

	delivered, err := dispatcher.SendBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if delivered != len(batch) {
		t.Fatalf("expected %d delivered, got %d", len(batch), delivered)
	}
	if len(stored) != len(batch) {
		t.Fatalf("expected %d stored, got %d", len(batch), len(stored))
	}
}

func TestDispatcher_SendBatchPartialFailure(t *testing.T) {
	failing := uuid.New()
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			if notification.UserID == failing {
				return errors.New("db down")
			}
			return nil
		},
	}
	dispatcher := newTestDispatcher(t, repo, nil, 2)

	batch := []models.Notification{
		{UserID: uuid.New(), Type: enums.NotificationTypeBloodRequest},
		{UserID: failing, Type: enums.NotificationTypeBloodRequest},
		{UserID: uuid.New(), Type: enums.NotificationTypeBloodRequest},
	}

	delivered, err := dispatcher.SendBatch(context.Background(), batch)
	if err == nil {
		t.Fatal("expected aggregated error for the failed recipient")
	}
	if delivered != 2 {
		t.Fatalf("expected 2 delivered, got %d", delivered)
	}
}

func TestDispatcher_FanoutCountersScopedToBatch(t *testing.T) {
	failing := uuid.New()
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			if notification.UserID == failing {
				return errors.New("db down")
			}
			return nil
		},
	}
	reg := prometheus.NewRegistry()
	dispatcher, err := NewDispatcher(DispatcherParams{
		Repo:        repo,
		Logger:      testLogger(),
		Fanout:      metrics.NewFanoutMetrics(reg),
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("unexpected dispatcher error: %v", err)
	}

	// A single targeted send is not a fan-out and must not move the counters.
	if err := dispatcher.Send(context.Background(), models.Notification{
		UserID: uuid.New(),
		Type:   enums.NotificationTypeBloodRequest,
	}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if got := fanoutCounter(t, reg, "notification_fanout_delivered"); got != 0 {
		t.Fatalf("single send must not count as fan-out, delivered=%f", got)
	}

	batch := []models.Notification{
		{UserID: uuid.New(), Type: enums.NotificationTypeBloodRequest},
		{UserID: failing, Type: enums.NotificationTypeBloodRequest},
		{UserID: uuid.New(), Type: enums.NotificationTypeBloodRequest},
	}
	if _, err := dispatcher.SendBatch(context.Background(), batch); err == nil {
		t.Fatal("expected aggregated error for the failed recipient")
	}
	if got := fanoutCounter(t, reg, "notification_fanout_delivered"); got != 2 {
		t.Fatalf("expected delivered=2, got %f", got)
	}
	if got := fanoutCounter(t, reg, "notification_fanout_failed"); got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
}

func fanoutCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestDispatcher_SendBatchEmpty(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeRepository{}, nil, 0)
	delivered, err := dispatcher.SendBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected 0 delivered, got %d", delivered)
	}
}
