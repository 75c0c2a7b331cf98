package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

// Product is the catalog listing that owns a set of SKUs.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code        string              `gorm:"column:code;not null;index" json:"code"`
	Title       types.LocalizedText `gorm:"column:title;type:jsonb;not null" json:"title"`
	Description types.LocalizedText `gorm:"column:description;type:jsonb" json:"description"`
	BasePrice   decimal.Decimal     `gorm:"column:base_price;type:numeric(14,4);not null" json:"basePrice"`
	CategoryID  *uuid.UUID          `gorm:"column:category_id;type:uuid;index" json:"categoryId,omitempty"`
	Images      types.StringList    `gorm:"column:images;type:jsonb;not null" json:"images"`
	Tags        types.StringList    `gorm:"column:tags;type:jsonb;not null" json:"tags"`
	Status      enums.ProductStatus `gorm:"column:status;not null" json:"status"`
	Attributes  []ProductAttribute  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"attributes"`
	SKUs        []SKU               `gorm:"foreignKey:ProductID" json:"skus"`
	DeletedAt   gorm.DeletedAt      `gorm:"column:deleted_at;index" json:"-"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductAttribute links a product to one of its variant dimensions.
type ProductAttribute struct {
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;primaryKey" json:"productId"`
	AttributeID uuid.UUID  `gorm:"column:attribute_id;type:uuid;primaryKey" json:"attributeId"`
	SortOrder   int        `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
	Attribute   *Attribute `gorm:"foreignKey:AttributeID" json:"attribute,omitempty"`
}

// SKU is a purchasable attribute-value combination of a product.
type SKU struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID         uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index" json:"productId"`
	SKUCode           string           `gorm:"column:sku_code;not null;uniqueIndex" json:"skuCode"`
	CombinationKey    string           `gorm:"column:combination_key;not null;default:''" json:"combinationKey"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(14,4);not null" json:"price"`
	Stock             int              `gorm:"column:stock;not null;default:0" json:"stock"`
	MOQ               int              `gorm:"column:moq;not null;default:1" json:"moq"`
	Image             *string          `gorm:"column:image" json:"image,omitempty"`
	TierPrices        types.TierPrices `gorm:"column:tier_prices;type:jsonb;not null" json:"tierPrices"`
	AttributeValueIDs types.UUIDList   `gorm:"column:attribute_value_ids;type:jsonb;not null" json:"attributeValueIds"`
	DeletedAt         gorm.DeletedAt   `gorm:"column:deleted_at;index" json:"-"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (SKU) TableName() string { return "skus" }

func (s *SKU) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
