package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

// User is the profile record consumed by the lifecycle engine. Authentication
// and profile editing live outside this service; the engine reads donor
// availability and is the only writer of the donation aggregates.
type User struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name             string          `gorm:"column:name;type:text;not null" json:"name"`
	Phone            string          `gorm:"column:phone;type:text;not null" json:"phone"`
	Email            string          `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	BloodType        enums.BloodType `gorm:"column:blood_type;type:text;not null" json:"bloodType"`
	UserType         enums.UserType  `gorm:"column:user_type;type:text;not null" json:"userType"`
	IsAvailable      bool            `gorm:"column:is_available;not null;default:true" json:"isAvailable"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	Points           int             `gorm:"column:points;not null;default:0" json:"points"`
	TotalDonations   int             `gorm:"column:total_donations;not null;default:0" json:"totalDonations"`
	LastDonationDate *time.Time      `gorm:"column:last_donation_date" json:"lastDonationDate,omitempty"`
	Location         *types.Location `gorm:"column:location;type:jsonb" json:"location,omitempty"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
