package orders

import (
	"context"
	"fmt"

	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var documentTitles = map[DocumentKind]string{
	DocumentProforma:   "Proforma Invoice",
	DocumentCommercial: "Commercial Invoice",
	DocumentPacking:    "Packing List",
}

var documentPrefixes = map[DocumentKind]string{
	DocumentProforma:   "PI",
	DocumentCommercial: "CI",
	DocumentPacking:    "PL",
}

func (s *service) Document(ctx context.Context, id uuid.UUID, kind DocumentKind, actor *pkgAuth.Actor) (*TradeDocument, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "unknown document kind %q", kind)
	}
	order, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	company, err := s.repo.FindCompany(ctx, order.CompanyID)
	if err != nil {
		return nil, db.NotFoundOr(err, "order company not found", "load company")
	}
	shipping, err := s.repo.FindShipping(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping")
	}

	doc := &TradeDocument{
		Kind:            kind,
		Title:           documentTitles[kind],
		Number:          fmt.Sprintf("%s-%s", documentPrefixes[kind], order.OrderNo),
		OrderNo:         order.OrderNo,
		OrderStatus:     order.Status,
		IssuedAt:        s.now().UTC(),
		OrderedAt:       order.CreatedAt,
		ShippingAddress: order.ShippingAddress,
		Currency:        order.Currency,
		Notes:           order.Notes,
		Buyer: DocumentParty{
			CompanyName:  company.Name,
			ContactEmail: company.ContactEmail,
			Country:      company.Country,
		},
		Lines: make([]DocumentLine, 0, len(order.Items)),
	}
	priced := kind != DocumentPacking
	for i, item := range order.Items {
		line := DocumentLine{
			No:          i + 1,
			SKUCode:     item.SKUCode,
			Description: item.ProductTitle,
			Quantity:    item.Quantity,
		}
		if priced {
			unit, amount := item.UnitPrice, item.TotalPrice
			line.UnitPrice, line.Amount = &unit, &amount
		}
		doc.Lines = append(doc.Lines, line)
		doc.TotalQuantity += item.Quantity
	}
	if priced {
		total := order.TotalAmount
		doc.Total = &total
	}
	if kind == DocumentCommercial {
		payments, err := s.repo.FindPayments(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
		}
		paid := paidAmount(payments)
		doc.AmountPaid = &paid
	}
	if kind != DocumentProforma && shipping != nil {
		doc.Shipment = &DocumentShipment{
			Carrier:    shipping.Carrier,
			TrackingNo: shipping.TrackingNo,
			ShippedAt:  shipping.ShippedAt,
		}
	}
	return doc, nil
}

func paidAmount(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == enums.PaymentStatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total
}
