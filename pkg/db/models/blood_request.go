package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

// BloodRequest is a requester's ask for N units of a blood type. Rows are
// never deleted; cancellation and completion are status changes.
type BloodRequest struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID       uuid.UUID           `gorm:"column:requester_id;type:uuid;not null;index" json:"requesterId"`
	RequesterName     string              `gorm:"column:requester_name;type:text;not null" json:"requesterName"`
	RequesterPhone    string              `gorm:"column:requester_phone;type:text;not null" json:"requesterPhone"`
	BloodType         enums.BloodType     `gorm:"column:blood_type;type:text;not null;index" json:"bloodType"`
	UrgencyLevel      enums.UrgencyLevel  `gorm:"column:urgency_level;type:text;not null" json:"urgencyLevel"`
	PatientName       string              `gorm:"column:patient_name;type:text;not null" json:"patientName"`
	HospitalName      string              `gorm:"column:hospital_name;type:text;not null" json:"hospitalName"`
	HospitalAddress   string              `gorm:"column:hospital_address;type:text;not null" json:"hospitalAddress"`
	Location          types.Location      `gorm:"column:location;type:jsonb" json:"location"`
	UnitsNeeded       int                 `gorm:"column:units_needed;not null" json:"unitsNeeded"`
	Description       string              `gorm:"column:description;type:text" json:"description"`
	Status            enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	AcceptedDonorID   *uuid.UUID          `gorm:"column:accepted_donor_id;type:uuid" json:"acceptedDonorId,omitempty"`
	AcceptedDonorName *string             `gorm:"column:accepted_donor_name;type:text" json:"acceptedDonorName,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	ExpiresAt         time.Time           `gorm:"column:expires_at;not null" json:"expiresAt"`
	CompletedAt       *time.Time          `gorm:"column:completed_at" json:"completedAt,omitempty"`
}
