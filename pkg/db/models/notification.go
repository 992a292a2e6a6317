package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openhema/bloodlink-backend/pkg/enums"
	"github.com/openhema/bloodlink-backend/pkg/types"
)

// Notification stores in-app notification payloads addressed to a user. The
// data column references the request/commitment ids the entry is about.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null" json:"type"`
	Title     string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	Data      types.JSONMap          `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"timestamp"`
}
