package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/api/responses"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
)

const actorIDHeader = "X-Actor-Id"

// Actor requires a valid X-Actor-Id header and stores the acting user's
// identifier on the request context. The gateway in front of this service
// authenticates callers and stamps the header.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(actorIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor id missing"))
				return
			}

			actorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id"))
				return
			}

			ctx := WithActorID(r.Context(), actorID.String())
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
