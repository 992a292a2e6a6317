package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultFanoutConcurrency = 8

// pushPublisher is the optional push-pipeline transport. Failures are logged
// and swallowed; the stored row is the source of truth.
type pushPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// Dispatcher persists notifications and forwards them to the push pipeline.
// Delivery is fire-and-forget: a dispatch failure never propagates into the
// lifecycle transition that produced it.
type Dispatcher struct {
	repo        Repository
	push        pushPublisher
	logg        *logger.Logger
	fanout      *metrics.FanoutMetrics
	concurrency int
}

// DispatcherParams configure the dispatcher.
type DispatcherParams struct {
	Repo        Repository
	Push        pushPublisher
	Logger      *logger.Logger
	Fanout      *metrics.FanoutMetrics
	Concurrency int
}

// NewDispatcher builds a notification dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultFanoutConcurrency
	}
	return &Dispatcher{
		repo:        params.Repo,
		push:        params.Push,
		logg:        params.Logger,
		fanout:      params.Fanout,
		concurrency: concurrency,
	}, nil
}

// Send stores one notification and best-effort publishes it for push delivery.
func (d *Dispatcher) Send(ctx context.Context, notification models.Notification) error {
	if notification.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !notification.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", notification.Type))
	}

	if err := d.repo.Create(ctx, &notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}

	d.publishPush(ctx, notification)
	return nil
}

// SendBatch fans one notification template out to many recipients with bounded
// concurrency. Partial failures are aggregated and returned alongside the
// delivered count; callers treat the error as advisory.
func (d *Dispatcher) SendBatch(ctx context.Context, batch []models.Notification) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	jobs := make(chan models.Notification)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
		errs      error
	)

	workers := d.concurrency
	if workers > len(batch) {
		workers = len(batch)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for notification := range jobs {
				err := d.Send(ctx, notification)
				if err != nil {
					d.fanout.IncFailed(string(notification.Type))
				} else {
					d.fanout.IncDelivered(string(notification.Type))
				}
				mu.Lock()
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", notification.UserID, err))
				} else {
					delivered++
				}
				mu.Unlock()
			}
		}()
	}

	for _, notification := range batch {
		jobs <- notification
	}
	close(jobs)
	wg.Wait()

	return delivered, errs
}

func (d *Dispatcher) publishPush(ctx context.Context, notification models.Notification) {
	if d.push == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		d.logg.Error(ctx, "encode push payload", err)
		return
	}
	attrs := map[string]string{
		"type":    string(notification.Type),
		"user_id": notification.UserID.String(),
	}
	if err := d.push.Publish(ctx, payload, attrs); err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_id": notification.ID,
			"user_id":         notification.UserID,
		})
		d.logg.Warn(logCtx, "push publish failed; notification stored only")
	}
}
