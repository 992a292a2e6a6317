package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/internal/donations"
)

type testDonationsService struct {
	historyFn func(ctx context.Context, params donations.HistoryParams) (*donations.History, error)
}

func (s *testDonationsService) History(ctx context.Context, params donations.HistoryParams) (*donations.History, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, params)
	}
	return &donations.History{}, nil
}

func TestDonationHistoryPassesFilter(t *testing.T) {
	donorID := uuid.New()
	var got donations.HistoryParams
	svc := &testDonationsService{
		historyFn: func(ctx context.Context, params donations.HistoryParams) (*donations.History, error) {
			got = params
			return &donations.History{Totals: donations.HistoryTotals{Donations: 1, Points: 50}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/history?filter=this_year", nil)
	req = withActor(req, donorID)
	resp := httptest.NewRecorder()

	DonationHistory(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.DonorID != donorID {
		t.Fatalf("expected donor %s got %s", donorID, got.DonorID)
	}
	if got.Filter != donations.YearFilterThisYear {
		t.Fatalf("unexpected filter %q", got.Filter)
	}
}

func TestDonationHistoryMissingActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/history", nil)
	resp := httptest.NewRecorder()

	DonationHistory(&testDonationsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
