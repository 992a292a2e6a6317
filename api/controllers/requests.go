package controllers

import (
	"net/http"
	"strings"

	"github.com/openhema/bloodlink-backend/api/responses"
	"github.com/openhema/bloodlink-backend/api/validators"
	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/openhema/bloodlink-backend/pkg/errors"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/pagination"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

type createRequestBody struct {
	RequesterName   string         `json:"requesterName" validate:"required"`
	RequesterPhone  string         `json:"requesterPhone" validate:"required"`
	BloodType       string         `json:"bloodType" validate:"required"`
	UrgencyLevel    string         `json:"urgencyLevel" validate:"required"`
	PatientName     string         `json:"patientName" validate:"required"`
	HospitalName    string         `json:"hospitalName" validate:"required"`
	HospitalAddress string         `json:"hospitalAddress" validate:"required"`
	Location        types.Location `json:"location"`
	UnitsNeeded     int            `json:"unitsNeeded" validate:"required,min=1,max=10"`
	Description     string         `json:"description"`
}

// CreateRequest raises a new blood request on behalf of the acting user.
func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), requests.CreateRequestInput{
			RequesterID:     requesterID,
			RequesterName:   body.RequesterName,
			RequesterPhone:  body.RequesterPhone,
			BloodType:       enums.BloodType(body.BloodType),
			UrgencyLevel:    enums.UrgencyLevel(body.UrgencyLevel),
			PatientName:     body.PatientName,
			HospitalName:    body.HospitalName,
			HospitalAddress: body.HospitalAddress,
			Location:        body.Location,
			UnitsNeeded:     body.UnitsNeeded,
			Description:     body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListOpenRequests returns the donor-facing feed of pending, unexpired requests.
func ListOpenRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := requests.ListOpenParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("bloodType")); raw != "" {
			bt, err := enums.ParseBloodType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type filter"))
				return
			}
			params.BloodType = &bt
		}

		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.ListOpen(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListMyRequests returns the acting user's own requests, newest first.
func ListMyRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByRequester(r.Context(), requests.ListByRequesterParams{
			RequesterID: requesterID,
			Limit:       limit,
			Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetRequest returns a single request by id.
func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

func parseLimit(r *http.Request) (int, error) {
	return validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
}
