package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhema/bloodlink-backend/api/controllers"
	"github.com/openhema/bloodlink-backend/api/middleware"
	"github.com/openhema/bloodlink-backend/internal/commitments"
	"github.com/openhema/bloodlink-backend/internal/donations"
	"github.com/openhema/bloodlink-backend/internal/notifications"
	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/internal/verification"
	"github.com/openhema/bloodlink-backend/pkg/config"
	"github.com/openhema/bloodlink-backend/pkg/db"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	requestsService requests.Service,
	commitmentsService commitments.Service,
	verificationService verification.Service,
	donationsService donations.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.CreateRequest(requestsService, logg))
			r.Get("/", controllers.ListOpenRequests(requestsService, logg))
			r.Get("/mine", controllers.ListMyRequests(requestsService, logg))
			r.Get("/{requestId}", controllers.GetRequest(requestsService, logg))
			r.Post("/{requestId}/accept", controllers.AcceptRequest(commitmentsService, logg))
		})

		r.Route("/commitments", func(r chi.Router) {
			r.Get("/active", controllers.ListActiveCommitments(commitmentsService, logg))
			r.Get("/pending-verification", controllers.ListPendingVerifications(commitmentsService, logg))
			r.Post("/{commitmentId}/start", controllers.StartCommitment(commitmentsService, logg))
			r.Post("/{commitmentId}/cancel", controllers.CancelCommitment(commitmentsService, logg))
			r.Post("/{commitmentId}/donated", controllers.MarkDonated(commitmentsService, logg))
			r.Post("/{commitmentId}/verify", controllers.VerifyDonation(verificationService, logg))
			r.Post("/{commitmentId}/dispute", controllers.DisputeDonation(verificationService, logg))
		})

		r.Get("/donations/history", controllers.DonationHistory(donationsService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
