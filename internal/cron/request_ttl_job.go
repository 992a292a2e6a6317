package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const expiredRequestBatchSize = 200

// expiredRequestStore is the slice of the requests repo the job uses.
type expiredRequestStore interface {
	FindExpired(ctx context.Context, now time.Time, limit int) ([]models.BloodRequest, error)
	CancelExpired(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)
}

// requestNotifier alerts requesters that their request lapsed.
type requestNotifier interface {
	Send(ctx context.Context, notification models.Notification) error
}

// RequestTTLJobParams configure the request expiry sweep.
type RequestTTLJobParams struct {
	Logger   *logger.Logger
	Requests expiredRequestStore
	Notifier requestNotifier
	Now      func() time.Time
}

type requestTTLJob struct {
	logg     *logger.Logger
	requests expiredRequestStore
	notify   requestNotifier
	now      func() time.Time
}

// NewRequestTTLJob builds the job that cancels pending requests past their
// 24h expiry and alerts their requesters.
func NewRequestTTLJob(params RequestTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &requestTTLJob{
		logg:     params.Logger,
		requests: params.Requests,
		notify:   params.Notifier,
		now:      now,
	}, nil
}

func (j *requestTTLJob) Name() string { return "request-ttl" }

// Run sweeps in batches until no expired pending requests remain. The cancel
// is conditional on status, so a request accepted mid-sweep is left alone.
func (j *requestTTLJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	total := int64(0)

	for {
		expired, err := j.requests.FindExpired(ctx, now, expiredRequestBatchSize)
		if err != nil {
			return fmt.Errorf("find expired requests: %w", err)
		}
		if len(expired) == 0 {
			break
		}

		ids := make([]uuid.UUID, 0, len(expired))
		for _, request := range expired {
			ids = append(ids, request.ID)
		}

		cancelled, err := j.requests.CancelExpired(ctx, ids, now)
		if err != nil {
			return fmt.Errorf("cancel expired requests: %w", err)
		}
		total += cancelled

		for _, request := range expired {
			if err := j.notify.Send(ctx, expiryNotification(request)); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("notify requester %s: %w", request.RequesterID, err))
			}
		}

		if len(expired) < expiredRequestBatchSize {
			break
		}
	}

	logCtx := j.logg.WithField(ctx, "cancelled", total)
	j.logg.Info(logCtx, "expired request sweep complete")
	if errs != nil {
		j.logg.Warn(logCtx, "some expiry notifications failed")
	}
	return nil
}

func expiryNotification(request models.BloodRequest) models.Notification {
	return models.Notification{
		UserID:  request.RequesterID,
		Type:    enums.NotificationTypeSystemAlert,
		Title:   "Request expired",
		Message: fmt.Sprintf("Your %s request expired without a donor; you can raise it again", request.BloodType),
		Data: types.JSONMap{
			"requestId": request.ID.String(),
		},
	}
}
