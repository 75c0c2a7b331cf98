package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Order is a binding purchase by a buyer company.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNo         string            `gorm:"column:order_no;not null;uniqueIndex" json:"orderNo"`
	CompanyID       uuid.UUID         `gorm:"column:company_id;type:uuid;not null;index" json:"companyId"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	InquiryID       *uuid.UUID        `gorm:"column:inquiry_id;type:uuid" json:"inquiryId,omitempty"`
	Status          enums.OrderStatus `gorm:"column:status;not null;index" json:"status"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,4);not null" json:"totalAmount"`
	Currency        string            `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	ShippingAddress *string           `gorm:"column:shipping_address" json:"shippingAddress,omitempty"`
	Notes           *string           `gorm:"column:notes" json:"notes,omitempty"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is a priced line of an order. Code and title are snapshots.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	SKUID        *uuid.UUID      `gorm:"column:sku_id;type:uuid;index" json:"skuId,omitempty"`
	SKUCode      string          `gorm:"column:sku_code;not null;default:''" json:"skuCode"`
	ProductTitle string          `gorm:"column:product_title;not null;default:''" json:"productTitle"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null" json:"unitPrice"`
	TotalPrice   decimal.Decimal `gorm:"column:total_price;type:numeric(14,4);not null" json:"totalPrice"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Payment records money received (or claimed) against an order.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(14,4);not null" json:"amount"`
	Method        enums.PaymentMethod `gorm:"column:method;not null" json:"method"`
	Status        enums.PaymentStatus `gorm:"column:status;not null" json:"status"`
	TransactionID string              `gorm:"column:transaction_id;not null;default:''" json:"transactionId"`
	ProofURL      *string             `gorm:"column:proof_url" json:"proofUrl,omitempty"`
	ApprovedBy    *uuid.UUID          `gorm:"column:approved_by;type:uuid" json:"approvedBy,omitempty"`
	PaidAt        *time.Time          `gorm:"column:paid_at" json:"paidAt,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Shipping is the dispatch record that moves an order to SHIPPED.
type Shipping struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"orderId"`
	TrackingNo string    `gorm:"column:tracking_no;not null" json:"trackingNo"`
	Carrier    string    `gorm:"column:carrier;not null" json:"carrier"`
	ShippedAt  time.Time `gorm:"column:shipped_at;not null" json:"shippedAt"`
	Notes      *string   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Shipping) TableName() string { return "shippings" }

func (s *Shipping) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
