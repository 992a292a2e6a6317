package requests

import (
	"github.com/openhema/bloodlink-backend/pkg/db/models"
	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
)

// CreateRequestInput carries everything needed to raise a blood request.
// The requester's contact snapshot is denormalized onto the request so
// matched donors can reach out without a second profile lookup.
type CreateRequestInput struct {
	RequesterID     uuid.UUID
	RequesterName   string
	RequesterPhone  string
	BloodType       enums.BloodType
	UrgencyLevel    enums.UrgencyLevel
	PatientName     string
	HospitalName    string
	HospitalAddress string
	Location        types.Location
	UnitsNeeded     int
	Description     string
}

// ListOpenParams filter the donor-facing open requests feed.
type ListOpenParams struct {
	BloodType *enums.BloodType
	Limit     int
	Cursor    string
}

// ListByRequesterParams page through a requester's own requests.
type ListByRequesterParams struct {
	RequesterID uuid.UUID
	Limit       int
	Cursor      string
}

// RequestList wraps a page of requests plus the cursor for the next page.
type RequestList struct {
	Items  []models.BloodRequest `json:"items"`
	Cursor string                `json:"cursor"`
}
