package controllers

import (
	"net/http"

	"github.com/openhema/bloodlink-backend/api/responses"
	"github.com/openhema/bloodlink-backend/api/validators"
	"github.com/openhema/bloodlink-backend/internal/verification"
	"github.com/openhema/bloodlink-backend/pkg/logger"
)

type verifyDonationBody struct {
	Notes *string `json:"notes"`
}

// VerifyDonation is the requester's confirmation that the donation happened.
// It completes the commitment, writes the ledger entry and credits the donor.
func VerifyDonation(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifierID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitmentID, err := pathUUID(r, "commitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body verifyDonationBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		commitment, err := svc.Verify(r.Context(), verification.VerifyInput{
			CommitmentID: commitmentID,
			VerifierID:   verifierID,
			Notes:        body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitment)
	}
}

type disputeDonationBody struct {
	Reason string `json:"reason" validate:"required"`
}

// DisputeDonation is the requester's rejection of the donor's claim.
func DisputeDonation(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifierID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitmentID, err := pathUUID(r, "commitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disputeDonationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commitment, err := svc.Dispute(r.Context(), verification.DisputeInput{
			CommitmentID: commitmentID,
			VerifierID:   verifierID,
			Reason:       body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitment)
	}
}
