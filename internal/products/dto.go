package product

import (
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sort orders accepted by List.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ListFilter captures the catalog browse filters.
type ListFilter struct {
	Search     string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	// Attributes maps an attribute id to the accepted value ids. A product
	// matches when every attribute has a live SKU carrying one of the values.
	Attributes map[uuid.UUID][]uuid.UUID
	Tag        string
	IDs        []uuid.UUID
	Status     *enums.ProductStatus
	Sort       string
	Page       pagination.PageParams
}

// ProductAttributeInput links an attribute to the product.
type ProductAttributeInput struct {
	AttributeID uuid.UUID
	SortOrder   *int
}

// SKUInput describes one variant row. Rows are matched to stored SKUs by ID
// first, then by the combination of their attribute values.
type SKUInput struct {
	ID                *uuid.UUID
	SKUCode           string
	AttributeValueIDs []uuid.UUID
	Price             *decimal.Decimal
	Stock             int
	MOQ               int
	Image             *string
	TierPrices        types.TierPrices
}

// CreateInput holds the payload to create a product.
type CreateInput struct {
	Code        string
	Title       types.LocalizedText
	Description types.LocalizedText
	BasePrice   decimal.Decimal
	CategoryID  *uuid.UUID
	Images      []string
	Tags        []string
	Status      enums.ProductStatus
	Attributes  []ProductAttributeInput
	SKUs        []SKUInput
}

// UpdateInput holds optional product mutations. Nil slices leave the stored
// rows untouched.
type UpdateInput struct {
	Code          *string
	Title         *types.LocalizedText
	Description   *types.LocalizedText
	BasePrice     *decimal.Decimal
	CategoryID    *uuid.UUID
	ClearCategory bool
	Images        *[]string
	Tags          *[]string
	Status        *enums.ProductStatus
	Attributes    *[]ProductAttributeInput
	SKUs          *[]SKUInput
}

// MatrixSelectionInput picks values of one attribute for matrix generation.
type MatrixSelectionInput struct {
	AttributeID uuid.UUID
	ValueIDs    []uuid.UUID
}

// MatrixInput previews the SKU matrix either for a stored product or inline.
type MatrixInput struct {
	ProductID  *uuid.UUID
	Prefix     string
	BasePrice  *decimal.Decimal
	Selections []MatrixSelectionInput
	Existing   []SKURow
}

// ListResult is a page of products.
type ListResult = types.Page[models.Product]
