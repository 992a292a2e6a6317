package controllers

import (
	"net/http"
	"strings"

	"github.com/openhema/bloodlink-backend/api/responses"
	"github.com/openhema/bloodlink-backend/internal/donations"
	"github.com/openhema/bloodlink-backend/pkg/logger"
)

// DonationHistory returns the acting donor's verified donation ledger with
// derived totals. The filter query parameter selects a calendar-year window.
func DonationHistory(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), donations.HistoryParams{
			DonorID: donorID,
			Filter:  donations.YearFilter(strings.TrimSpace(r.URL.Query().Get("filter"))),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
