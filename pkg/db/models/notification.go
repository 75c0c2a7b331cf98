package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Notification is an in-app message. A nil UserID is an admin broadcast.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        *uuid.UUID             `gorm:"column:user_id;type:uuid;index" json:"userId,omitempty"`
	Type          enums.NotificationType `gorm:"column:type;not null" json:"type"`
	Title         string                 `gorm:"column:title;not null" json:"title"`
	Content       string                 `gorm:"column:content;not null" json:"content"`
	ReferenceID   *uuid.UUID             `gorm:"column:reference_id;type:uuid" json:"referenceId,omitempty"`
	ReferenceType *enums.ReferenceType   `gorm:"column:reference_type" json:"referenceType,omitempty"`
	IsRead        bool                   `gorm:"column:is_read;not null;default:false" json:"isRead"`
	ReadAt        *time.Time             `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
