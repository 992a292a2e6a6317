package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
)

type testRequestsService struct {
	createFn          func(ctx context.Context, input requests.CreateRequestInput) (*models.BloodRequest, error)
	getFn             func(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error)
	listOpenFn        func(ctx context.Context, params requests.ListOpenParams) (*requests.RequestList, error)
	listByRequesterFn func(ctx context.Context, params requests.ListByRequesterParams) (*requests.RequestList, error)
}

func (s *testRequestsService) Create(ctx context.Context, input requests.CreateRequestInput) (*models.BloodRequest, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.BloodRequest{}, nil
}

func (s *testRequestsService) Get(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.BloodRequest{}, nil
}

func (s *testRequestsService) ListOpen(ctx context.Context, params requests.ListOpenParams) (*requests.RequestList, error) {
	if s.listOpenFn != nil {
		return s.listOpenFn(ctx, params)
	}
	return &requests.RequestList{}, nil
}

func (s *testRequestsService) ListByRequester(ctx context.Context, params requests.ListByRequesterParams) (*requests.RequestList, error) {
	if s.listByRequesterFn != nil {
		return s.listByRequesterFn(ctx, params)
	}
	return &requests.RequestList{}, nil
}

func createRequestPayload() string {
	return `{
		"requesterName": "Jordan Osei",
		"requesterPhone": "+15550001111",
		"bloodType": "O-",
		"urgencyLevel": "urgent",
		"patientName": "A. Patient",
		"hospitalName": "General Hospital",
		"hospitalAddress": "1 Hospital Way",
		"location": {"latitude": 5.6, "longitude": -0.19},
		"unitsNeeded": 2
	}`
}

func TestCreateRequestSuccess(t *testing.T) {
	requesterID := uuid.New()
	var got requests.CreateRequestInput
	svc := &testRequestsService{
		createFn: func(ctx context.Context, input requests.CreateRequestInput) (*models.BloodRequest, error) {
			got = input
			return &models.BloodRequest{ID: uuid.New(), RequesterID: input.RequesterID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(createRequestPayload()))
	req = withActor(req, requesterID)
	resp := httptest.NewRecorder()

	CreateRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.RequesterID != requesterID {
		t.Fatalf("expected requester %s got %s", requesterID, got.RequesterID)
	}
	if got.BloodType != enums.BloodTypeONeg {
		t.Fatalf("unexpected blood type %s", got.BloodType)
	}
	if got.UnitsNeeded != 2 {
		t.Fatalf("unexpected units %d", got.UnitsNeeded)
	}
}

func TestCreateRequestMissingActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(createRequestPayload()))
	resp := httptest.NewRecorder()

	CreateRequest(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateRequestRejectsInvalidBody(t *testing.T) {
	called := false
	svc := &testRequestsService{
		createFn: func(ctx context.Context, input requests.CreateRequestInput) (*models.BloodRequest, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"unitsNeeded": 2}`))
	req = withActor(req, uuid.New())
	resp := httptest.NewRecorder()

	CreateRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("service should not run on invalid body")
	}
}

func TestListOpenRequestsFilter(t *testing.T) {
	var got requests.ListOpenParams
	svc := &testRequestsService{
		listOpenFn: func(ctx context.Context, params requests.ListOpenParams) (*requests.RequestList, error) {
			got = params
			return &requests.RequestList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?bloodType=A%2B&limit=5&cursor=abc", nil)
	resp := httptest.NewRecorder()

	ListOpenRequests(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.BloodType == nil || *got.BloodType != enums.BloodTypeAPos {
		t.Fatalf("expected A+ filter, got %v", got.BloodType)
	}
	if got.Limit != 5 || got.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestListOpenRequestsInvalidBloodType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?bloodType=Z%2B", nil)
	resp := httptest.NewRecorder()

	ListOpenRequests(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListMyRequestsUsesActor(t *testing.T) {
	requesterID := uuid.New()
	var got requests.ListByRequesterParams
	svc := &testRequestsService{
		listByRequesterFn: func(ctx context.Context, params requests.ListByRequesterParams) (*requests.RequestList, error) {
			got = params
			return &requests.RequestList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/mine", nil)
	req = withActor(req, requesterID)
	resp := httptest.NewRecorder()

	ListMyRequests(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.RequesterID != requesterID {
		t.Fatalf("expected requester %s got %s", requesterID, got.RequesterID)
	}
}

func TestGetRequestInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/bad", nil)
	req = addRouteParam(req, "requestId", "bad")
	resp := httptest.NewRecorder()

	GetRequest(&testRequestsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetRequestSuccess(t *testing.T) {
	requestID := uuid.New()
	svc := &testRequestsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
			if id != requestID {
				t.Fatalf("unexpected id %s", id)
			}
			return &models.BloodRequest{ID: requestID, Status: enums.RequestStatusPending}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+requestID.String(), nil)
	req = addRouteParam(req, "requestId", requestID.String())
	resp := httptest.NewRecorder()

	GetRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data models.BloodRequest `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID != requestID {
		t.Fatalf("unexpected payload id %s", envelope.Data.ID)
	}
}
