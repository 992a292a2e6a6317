package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

// DonationRecord is one row of the append-only donation ledger, written exactly
// once per verified commitment. The unique commitment_id index is what makes a
// retried verification unable to double-credit a donor.
type DonationRecord struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CommitmentID   uuid.UUID       `gorm:"column:commitment_id;type:uuid;not null;uniqueIndex" json:"commitmentId"`
	DonorID        uuid.UUID       `gorm:"column:donor_id;type:uuid;not null;index" json:"donorId"`
	BloodType      enums.BloodType `gorm:"column:blood_type;type:text;not null" json:"bloodType"`
	DonationDate   time.Time       `gorm:"column:donation_date;not null" json:"donationDate"`
	PointsEarned   int             `gorm:"column:points_earned;not null" json:"pointsEarned"`
	UnitsCollected *int            `gorm:"column:units_collected" json:"unitsCollected,omitempty"`
	BloodBankName  *string         `gorm:"column:blood_bank_name;type:text" json:"bloodBankName,omitempty"`
	Location       *types.Location `gorm:"column:location;type:jsonb" json:"location,omitempty"`
	Notes          *string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CertificateURL *string         `gorm:"column:certificate_url;type:text" json:"certificateUrl,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
}
