package matching

import (
	"context"
	"fmt"

	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

// donorFinder is the slice of the identity store the matcher reads.
type donorFinder interface {
	FindAvailableDonors(ctx context.Context, bloodType enums.BloodType) ([]models.User, error)
}

// batchSender delivers one notification per matched donor.
type batchSender interface {
	SendBatch(ctx context.Context, batch []models.Notification) (int, error)
}

// Service fans a new blood request out to matching donors. Matching is exact
// blood-type equality over available, active donors; no ABO/Rh compatibility
// expansion is applied.
type Service interface {
	NotifyMatches(ctx context.Context, request *models.BloodRequest) (int, error)
}

type service struct {
	donors     donorFinder
	dispatcher batchSender
	logg       *logger.Logger
}

// NewService wires the matching service.
func NewService(donors donorFinder, dispatcher batchSender, logg *logger.Logger) (Service, error) {
	if donors == nil {
		return nil, fmt.Errorf("donor finder required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{donors: donors, dispatcher: dispatcher, logg: logg}, nil
}

// NotifyMatches returns the number of donors notified. A partial fan-out
// failure is returned alongside the count so the caller can log it without
// treating the whole operation as failed.
func (s *service) NotifyMatches(ctx context.Context, request *models.BloodRequest) (int, error) {
	if request == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "request required")
	}

	donors, err := s.donors.FindAvailableDonors(ctx, request.BloodType)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find matching donors")
	}
	if len(donors) == 0 {
		s.logg.Info(s.logg.WithField(ctx, "request_id", request.ID), "no matching donors for request")
		return 0, nil
	}

	batch := make([]models.Notification, 0, len(donors))
	for _, donor := range donors {
		batch = append(batch, models.Notification{
			UserID:  donor.ID,
			Type:    enums.NotificationTypeBloodRequest,
			Title:   fmt.Sprintf("%s blood needed", request.BloodType),
			Message: notificationMessage(request),
			Data: types.JSONMap{
				"requestId":    request.ID.String(),
				"bloodType":    string(request.BloodType),
				"urgencyLevel": string(request.UrgencyLevel),
				"hospitalName": request.HospitalName,
				"unitsNeeded":  request.UnitsNeeded,
			},
		})
	}

	return s.dispatcher.SendBatch(ctx, batch)
}

func notificationMessage(request *models.BloodRequest) string {
	return fmt.Sprintf("%s needs %d unit(s) of %s at %s (%s)",
		request.RequesterName, request.UnitsNeeded, request.BloodType,
		request.HospitalName, request.UrgencyLevel)
}
