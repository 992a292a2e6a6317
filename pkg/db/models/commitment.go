package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/pkg/enums"
)

// Commitment is a donor's acceptance of a blood request, carrying a denormalized
// snapshot of the request so donor-facing views need no joins. Rows are never
// deleted; every outcome is a status.
type Commitment struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID          uuid.UUID              `gorm:"column:request_id;type:uuid;not null;index" json:"requestId"`
	DonorID            uuid.UUID              `gorm:"column:donor_id;type:uuid;not null;index" json:"donorId"`
	RequesterID        uuid.UUID              `gorm:"column:requester_id;type:uuid;not null;index" json:"requesterId"`
	BloodType          enums.BloodType        `gorm:"column:blood_type;type:text;not null" json:"bloodType"`
	UnitsNeeded        int                    `gorm:"column:units_needed;not null" json:"unitsNeeded"`
	UrgencyLevel       enums.UrgencyLevel     `gorm:"column:urgency_level;type:text;not null" json:"urgencyLevel"`
	PatientName        string                 `gorm:"column:patient_name;type:text;not null" json:"patientName"`
	HospitalName       string                 `gorm:"column:hospital_name;type:text;not null" json:"hospitalName"`
	HospitalAddress    string                 `gorm:"column:hospital_address;type:text;not null" json:"hospitalAddress"`
	RequesterName      string                 `gorm:"column:requester_name;type:text;not null" json:"requesterName"`
	RequesterPhone     string                 `gorm:"column:requester_phone;type:text;not null" json:"requesterPhone"`
	DonorName          string                 `gorm:"column:donor_name;type:text;not null" json:"donorName"`
	ChatID             string                 `gorm:"column:chat_id;type:text;not null" json:"chatId"`
	AcceptedDate       time.Time              `gorm:"column:accepted_date;not null" json:"acceptedDate"`
	Status             enums.CommitmentStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	Notes              *string                `gorm:"column:notes;type:text" json:"notes,omitempty"`
	DonorCompletedAt   *time.Time             `gorm:"column:donor_completed_at" json:"donorCompletedAt,omitempty"`
	DonorNotes         *string                `gorm:"column:donor_notes;type:text" json:"donorNotes,omitempty"`
	CancellationReason *string                `gorm:"column:cancellation_reason;type:text" json:"cancellationReason,omitempty"`
	DisputeReason      *string                `gorm:"column:dispute_reason;type:text" json:"disputeReason,omitempty"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}
