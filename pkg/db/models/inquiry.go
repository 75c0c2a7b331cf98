package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Inquiry is a buyer's request for quotation.
type Inquiry struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InquiryNo    string              `gorm:"column:inquiry_no;not null;uniqueIndex" json:"inquiryNo"`
	CompanyID    *uuid.UUID          `gorm:"column:company_id;type:uuid;index" json:"companyId,omitempty"`
	UserID       *uuid.UUID          `gorm:"column:user_id;type:uuid" json:"userId,omitempty"`
	ContactName  string              `gorm:"column:contact_name;not null" json:"contactName"`
	ContactEmail string              `gorm:"column:contact_email;not null" json:"contactEmail"`
	ContactPhone *string             `gorm:"column:contact_phone" json:"contactPhone,omitempty"`
	CompanyName  *string             `gorm:"column:company_name" json:"companyName,omitempty"`
	Notes        *string             `gorm:"column:notes" json:"notes,omitempty"`
	Status       enums.InquiryStatus `gorm:"column:status;not null;index" json:"status"`
	Currency     string              `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	Items        []InquiryItem       `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (i *Inquiry) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InquiryItem is one requested line of an inquiry.
type InquiryItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InquiryID   uuid.UUID        `gorm:"column:inquiry_id;type:uuid;not null;index" json:"inquiryId"`
	ProductID   uuid.UUID        `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	SKUID       *uuid.UUID       `gorm:"column:sku_id;type:uuid;index" json:"skuId,omitempty"`
	SKUSpecs    string           `gorm:"column:sku_specs;not null;default:''" json:"skuSpecs"`
	Quantity    int              `gorm:"column:quantity;not null" json:"quantity"`
	TargetPrice *decimal.Decimal `gorm:"column:target_price;type:numeric(14,4)" json:"targetPrice,omitempty"`
	QuotedPrice *decimal.Decimal `gorm:"column:quoted_price;type:numeric(14,4)" json:"quotedPrice,omitempty"`
	SortOrder   int              `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (i *InquiryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InquiryMessage is one entry in the buyer/staff thread of an inquiry.
type InquiryMessage struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InquiryID  uuid.UUID      `gorm:"column:inquiry_id;type:uuid;not null;index" json:"inquiryId"`
	SenderID   *uuid.UUID     `gorm:"column:sender_id;type:uuid" json:"senderId,omitempty"`
	SenderRole enums.UserRole `gorm:"column:sender_role;not null" json:"senderRole"`
	Content    string         `gorm:"column:content;not null" json:"content"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (m *InquiryMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
