package inquiries

import (
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemInput is one requested line. ID is set when updating a stored item.
type ItemInput struct {
	ID          *uuid.UUID
	ProductID   uuid.UUID
	SKUID       *uuid.UUID
	SKUSpecs    string
	Quantity    int
	TargetPrice *decimal.Decimal
	QuotedPrice *decimal.Decimal
}

// CreateInput holds the RFQ submitted by a buyer or an anonymous visitor.
type CreateInput struct {
	ContactName  string
	ContactEmail string
	ContactPhone *string
	CompanyName  *string
	Notes        *string
	Currency     string
	Items        []ItemInput
}

// UpdateInput holds optional inquiry mutations. A nil Items leaves the
// stored lines untouched.
type UpdateInput struct {
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
	CompanyName  *string
	Notes        *string
	Status       *enums.InquiryStatus
	Currency     *string
	Items        *[]ItemInput
}

// ImportMeta carries the contact fields for an imported RFQ. Empty values
// fall back to the caller's identity.
type ImportMeta struct {
	ContactName  string
	ContactEmail string
	ContactPhone *string
	CompanyName  *string
	Notes        *string
	Currency     string
}

// ListFilter narrows the inquiry listing.
type ListFilter struct {
	Status *enums.InquiryStatus
	Search string
	Page   pagination.PageParams
}

// ListResult is a page of inquiries.
type ListResult = types.Page[models.Inquiry]

// Quotation is the document view of an inquiry, used in place of a PDF.
type Quotation struct {
	InquiryNo    string              `json:"inquiryNo"`
	IssuedAt     time.Time           `json:"issuedAt"`
	Status       enums.InquiryStatus `json:"status"`
	ContactName  string              `json:"contactName"`
	ContactEmail string              `json:"contactEmail"`
	ContactPhone *string             `json:"contactPhone,omitempty"`
	CompanyName  *string             `json:"companyName,omitempty"`
	Currency     string              `json:"currency"`
	Lines        []QuotationLine     `json:"lines"`
	Total        decimal.Decimal     `json:"total"`
	Notes        *string             `json:"notes,omitempty"`
}

// QuotationLine is one priced line of a quotation. LineTotal is zero until
// the line is quoted.
type QuotationLine struct {
	No           int              `json:"no"`
	ProductCode  string           `json:"productCode"`
	ProductTitle string           `json:"productTitle"`
	SKUCode      string           `json:"skuCode,omitempty"`
	Specs        string           `json:"specs"`
	Quantity     int              `json:"quantity"`
	TargetPrice  *decimal.Decimal `json:"targetPrice,omitempty"`
	QuotedPrice  *decimal.Decimal `json:"quotedPrice,omitempty"`
	LineTotal    decimal.Decimal  `json:"lineTotal"`
}
