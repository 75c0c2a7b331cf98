package orders

import (
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemInput is one ordered SKU line.
type ItemInput struct {
	SKUID    uuid.UUID
	Quantity int
}

// CreateInput places an order. CompanyID is only honoured for staff placing
// an order on a buyer's behalf.
type CreateInput struct {
	CompanyID       *uuid.UUID
	InquiryID       *uuid.UUID
	Currency        string
	ShippingAddress *string
	Notes           *string
	Items           []ItemInput
}

// ListFilter narrows the order listing.
type ListFilter struct {
	Status *enums.OrderStatus
	Search string
	Page   pagination.PageParams
}

// ListResult is a page of orders.
type ListResult = types.Page[models.Order]

// DocumentKind selects one of the trade documents of an order.
type DocumentKind string

const (
	DocumentProforma   DocumentKind = "pi"
	DocumentCommercial DocumentKind = "ci"
	DocumentPacking    DocumentKind = "pl"
)

// IsValid reports whether k names a known document.
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentProforma, DocumentCommercial, DocumentPacking:
		return true
	}
	return false
}

// TradeDocument is the data behind a proforma invoice, commercial invoice or
// packing list. Money fields are omitted on packing lists.
type TradeDocument struct {
	Kind            DocumentKind      `json:"kind"`
	Title           string            `json:"title"`
	Number          string            `json:"number"`
	OrderNo         string            `json:"orderNo"`
	OrderStatus     enums.OrderStatus `json:"orderStatus"`
	IssuedAt        time.Time         `json:"issuedAt"`
	OrderedAt       time.Time         `json:"orderedAt"`
	Buyer           DocumentParty     `json:"buyer"`
	ShippingAddress *string           `json:"shippingAddress,omitempty"`
	Currency        string            `json:"currency"`
	Lines           []DocumentLine    `json:"lines"`
	TotalQuantity   int               `json:"totalQuantity"`
	Total           *decimal.Decimal  `json:"total,omitempty"`
	AmountPaid      *decimal.Decimal  `json:"amountPaid,omitempty"`
	Shipment        *DocumentShipment `json:"shipment,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
}

// DocumentParty names the buyer on a trade document.
type DocumentParty struct {
	CompanyName  string  `json:"companyName"`
	ContactEmail string  `json:"contactEmail"`
	Country      *string `json:"country,omitempty"`
}

// DocumentLine is one line of a trade document.
type DocumentLine struct {
	No          int              `json:"no"`
	SKUCode     string           `json:"skuCode"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// DocumentShipment carries dispatch details on invoices and packing lists.
type DocumentShipment struct {
	Carrier    string    `json:"carrier"`
	TrackingNo string    `json:"trackingNo"`
	ShippedAt  time.Time `json:"shippedAt"`
}
