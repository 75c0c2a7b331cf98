package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

// Attribute is a variant dimension such as Color or Size.
type Attribute struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      types.LocalizedText `gorm:"column:name;type:jsonb;not null" json:"name"`
	Code      string              `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Type      enums.AttributeType `gorm:"column:type;not null" json:"type"`
	Values    []AttributeValue    `gorm:"foreignKey:AttributeID;constraint:OnDelete:CASCADE" json:"values"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (a *Attribute) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// AttributeValue is one selectable option of an Attribute.
type AttributeValue struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AttributeID uuid.UUID           `gorm:"column:attribute_id;type:uuid;not null;index" json:"attributeId"`
	Value       types.LocalizedText `gorm:"column:value;type:jsonb;not null" json:"value"`
	Meta        *string             `gorm:"column:meta" json:"meta,omitempty"`
	SortOrder   int                 `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (v *AttributeValue) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
