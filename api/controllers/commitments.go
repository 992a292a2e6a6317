package controllers

import (
	"net/http"

	"github.com/openhema/bloodlink-backend/api/responses"
	"github.com/openhema/bloodlink-backend/api/validators"
	"github.com/openhema/bloodlink-backend/internal/commitments"
	"github.com/openhema/bloodlink-backend/pkg/logger"
)

type acceptRequestBody struct {
	DonorName string `json:"donorName" validate:"required"`
}

// AcceptRequest lets the acting donor take a pending request. Exactly one
// donor wins when several accept concurrently.
func AcceptRequest(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body acceptRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitment, err := svc.Accept(r.Context(), commitments.AcceptInput{
			RequestID: requestID,
			DonorID:   donorID,
			DonorName: body.DonorName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, commitment)
	}
}

// StartCommitment moves the acting donor's commitment to in_progress.
func StartCommitment(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitmentID, err := pathUUID(r, "commitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitment, err := svc.Start(r.Context(), commitmentID, donorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitment)
	}
}

type cancelCommitmentBody struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelCommitment withdraws the acting donor's commitment and reopens the
// request for other donors.
func CancelCommitment(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitmentID, err := pathUUID(r, "commitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelCommitmentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitment, err := svc.Cancel(r.Context(), commitments.CancelInput{
			CommitmentID: commitmentID,
			DonorID:      donorID,
			Reason:       body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitment)
	}
}

type markDonatedBody struct {
	Notes *string `json:"notes"`
}

// MarkDonated records the acting donor's claim that the donation happened
// and parks the commitment until the requester verifies it.
func MarkDonated(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitmentID, err := pathUUID(r, "commitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body markDonatedBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		commitment, err := svc.MarkPendingVerification(r.Context(), commitments.MarkPendingVerificationInput{
			CommitmentID: commitmentID,
			DonorID:      donorID,
			DonorNotes:   body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitment)
	}
}

// ListActiveCommitments returns the acting donor's live commitments.
func ListActiveCommitments(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListActive(r.Context(), donorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ListPendingVerifications returns commitments awaiting the acting
// requester's confirmation.
func ListPendingVerifications(svc commitments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListPendingVerifications(r.Context(), requesterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
