package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/redis"
	"github.com/google/uuid"
)

// channelStore is the slice of the redis client the chat registry uses.
type channelStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	ChatChannelKey(requestID, donorID, requesterID string) string
}

// Service hands out chat channel ids for a request/donor/requester triple.
// The registry is idempotent: the same triple always resolves to the same
// channel, so a retried accept reuses the channel instead of minting one.
type Service interface {
	OpenOrReuse(ctx context.Context, requestID, donorID, requesterID uuid.UUID) (string, error)
}

type service struct {
	store channelStore
	logg  *logger.Logger
}

// NewService wires the chat registry.
func NewService(store channelStore, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat channel store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg}, nil
}

func (s *service) OpenOrReuse(ctx context.Context, requestID, donorID, requesterID uuid.UUID) (string, error) {
	if requestID == uuid.Nil || donorID == uuid.Nil || requesterID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "request, donor and requester ids required")
	}

	key := s.store.ChatChannelKey(requestID.String(), donorID.String(), requesterID.String())
	candidate := fmt.Sprintf("chat_%s", uuid.NewString())

	// Channels are never expired here; stale entries are reaped with the
	// request they belong to.
	created, err := s.store.SetNX(ctx, key, candidate, 0)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register chat channel")
	}
	if created {
		s.logg.Info(s.logg.WithField(ctx, "chat_id", candidate), "chat channel created")
		return candidate, nil
	}

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Lost a race with a deletion between SetNX and Get. One retry
			// is enough; a second loss means the request is being torn down.
			created, retryErr := s.store.SetNX(ctx, key, candidate, 0)
			if retryErr != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeDependency, retryErr, "register chat channel")
			}
			if created {
				return candidate, nil
			}
			return "", pkgerrors.New(pkgerrors.CodeDependency, "chat channel registry unstable")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve chat channel")
	}
	return existing, nil
}
