package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var cancellableStatuses = []enums.OrderStatus{
	enums.OrderStatusPendingPayment,
	enums.OrderStatusProcessing,
}

const (
	numberAttempts = 3
	titleLocale    = "en"
)

// Service runs the order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Order, error)
	List(ctx context.Context, actor *pkgAuth.Actor, filter ListFilter) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actor *pkgAuth.Actor) (*models.Order, error)
	Document(ctx context.Context, id uuid.UUID, kind DocumentKind, actor *pkgAuth.Actor) (*TradeDocument, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Catalog    *product.Repository
	Inquiries  *inquiries.Repository
	Notifier   notifications.Notifier
	Resolver   notifications.RecipientResolver
	Logger     *logger.Logger
	Now        Clock
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   *product.Repository
	inquiries *inquiries.Repository
	notifier  notifications.Notifier
	resolver  notifications.RecipientResolver
	logg      *logger.Logger
	now       Clock
}

// NewService validates the dependencies and builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Inquiries == nil {
		return nil, fmt.Errorf("inquiry repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("recipient resolver required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repository,
		tx:        params.Tx,
		catalog:   params.Catalog,
		inquiries: params.Inquiries,
		notifier:  params.Notifier,
		resolver:  params.Resolver,
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for i, item := range input.Items {
		if item.SKUID == uuid.Nil {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].skuId is required", i)
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d].quantity must be positive", i)
		}
		if _, dup := seen[item.SKUID]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "items[%d] repeats sku %s", i, item.SKUID)
		}
		seen[item.SKUID] = struct{}{}
	}
	currency, err := types.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	var inquiry *models.Inquiry
	if input.InquiryID != nil {
		inquiry, err = s.inquiries.FindByID(ctx, *input.InquiryID)
		if err != nil {
			return nil, db.NotFoundOr(err, "inquiry not found", "load inquiry")
		}
	}
	companyID, err := orderCompany(actor, input.CompanyID, inquiry)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CompanyID:       companyID,
		UserID:          actor.UserID,
		InquiryID:       input.InquiryID,
		Status:          enums.OrderStatusPendingPayment,
		Currency:        currency,
		ShippingAddress: types.TrimmedPtr(input.ShippingAddress),
		Notes:           types.TrimmedPtr(input.Notes),
	}

	year := s.now().UTC().Year()
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.place(ctx, tx, order, input.Items, year, attempt)
		})
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an order number, retry")
		}
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "order_id", order.ID.String())
	s.logg.Info(ctx, "order placed")

	s.notifier.NotifyAdmin(ctx, notifications.Notice{
		Type:    enums.NotificationTypeOrderNew,
		Title:   fmt.Sprintf("New order %s", order.OrderNo),
		Content: fmt.Sprintf("Order %s was placed for %s %s.", order.OrderNo, order.TotalAmount.StringFixed(2), order.Currency),
	}.About(enums.ReferenceTypeOrder, order.ID))
	s.notifier.NotifyUser(ctx, actor.UserID, actor.Email, notifications.Notice{
		Type:    enums.NotificationTypeOrderCreated,
		Title:   fmt.Sprintf("Order %s received", order.OrderNo),
		Content: fmt.Sprintf("Your order %s is awaiting payment of %s %s.", order.OrderNo, order.TotalAmount.StringFixed(2), order.Currency),
	}.About(enums.ReferenceTypeOrder, order.ID))

	return s.load(ctx, order.ID)
}

// place prices and reserves every line, then writes the order. Any failure
// rolls the stock decrements back with the transaction.
func (s *service) place(ctx context.Context, tx *gorm.DB, order *models.Order, items []ItemInput, year, attempt int) error {
	catalog := s.catalog.WithTx(tx)
	repo := s.repo.WithTx(tx)

	order.ID = uuid.Nil
	order.Items = make([]models.OrderItem, 0, len(items))
	total := decimal.Zero
	for _, in := range items {
		sku, prod, err := catalog.FindSKU(ctx, in.SKUID)
		if err != nil {
			return db.NotFoundOr(err, fmt.Sprintf("sku %s not found", in.SKUID), "load sku")
		}
		if in.Quantity > sku.Stock {
			return insufficientStock(sku, in.Quantity)
		}
		if in.Quantity < sku.MOQ {
			return pkgerrors.Messagef(pkgerrors.CodeBadRequest, "sku %s requires a minimum order of %d", sku.SKUCode, sku.MOQ).
				WithDetails(map[string]any{"reason": "moq_violation", "skuId": sku.ID, "moq": sku.MOQ, "requested": in.Quantity})
		}
		unit := product.EffectiveUnitPrice(sku.Price, sku.TierPrices, in.Quantity)
		ok, err := catalog.DecrementStock(ctx, sku.ID, in.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		if !ok {
			return insufficientStock(sku, in.Quantity)
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(lineTotal)
		skuID := sku.ID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    prod.ID,
			SKUID:        &skuID,
			SKUCode:      sku.SKUCode,
			ProductTitle: prod.Title.Get(titleLocale),
			Quantity:     in.Quantity,
			UnitPrice:    unit,
			TotalPrice:   lineTotal,
		})
	}
	order.TotalAmount = total

	if order.InquiryID != nil {
		inquiryRepo := s.inquiries.WithTx(tx)
		inquiry, err := inquiryRepo.FindByID(ctx, *order.InquiryID)
		if err != nil {
			return db.NotFoundOr(err, "inquiry not found", "load inquiry")
		}
		if inquiry.Status == enums.InquiryStatusOrdered || inquiry.Status == enums.InquiryStatusClosed {
			return pkgerrors.Messagef(pkgerrors.CodeStateConflict, "inquiry %s is already %s", inquiry.InquiryNo, inquiry.Status).
				WithDetails(map[string]any{"reason": "invalid_status", "status": inquiry.Status})
		}
		if err := inquiryRepo.SetStatus(ctx, inquiry.ID, enums.InquiryStatusOrdered); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark inquiry ordered")
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	order.OrderNo = fmt.Sprintf("ORD-%d-%d", year, count+1+int64(attempt))
	if err := repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (s *service) List(ctx context.Context, actor *pkgAuth.Actor, filter ListFilter) (*ListResult, error) {
	scope, err := actor.CompanyScope()
	if err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", *filter.Status)
	}
	filter.Page = filter.Page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return &ListResult{Items: rows, Total: total, Page: filter.Page.Page, Limit: filter.Page.Limit}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	companyID := order.CompanyID
	if !actor.CanAccessCompany(&companyID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another company")
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor *pkgAuth.Actor) (*models.Order, error) {
	order, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !order.Status.IsCancellable() {
		return nil, invalidStatus(order, "cancelled")
	}
	if err := s.cancel(ctx, order, cancellableStatuses); err != nil {
		return nil, err
	}

	notice := notifications.Notice{
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   fmt.Sprintf("Order %s cancelled", order.OrderNo),
		Content: fmt.Sprintf("Order %s has been cancelled and its stock released.", order.OrderNo),
	}.About(enums.ReferenceTypeOrder, order.ID)
	if actor.IsStaff() {
		s.notifyBuyer(ctx, order, notice)
	} else {
		s.notifier.NotifyAdmin(ctx, notice)
	}
	return s.load(ctx, id)
}

// cancel flips the status first so two concurrent cancels cannot both
// restore stock.
func (s *service) cancel(ctx context.Context, order *models.Order, from []enums.OrderStatus) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from,
			enums.OrderStatusCancelled,
			map[string]any{"cancelled_at": s.now().UTC()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return invalidStatus(order, "cancelled")
		}
		catalog := s.catalog.WithTx(tx)
		for _, item := range order.Items {
			if item.SKUID == nil {
				continue
			}
			if err := catalog.RestoreStock(ctx, *item.SKUID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
		return nil
	})
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actor *pkgAuth.Actor) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", status)
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, invalidStatus(order, string(status))
	}

	if status == enums.OrderStatusCancelled {
		if err := s.cancel(ctx, order, cancellableStatuses); err != nil {
			return nil, err
		}
	} else {
		ok, err := s.repo.TransitionStatus(ctx, id, []enums.OrderStatus{order.Status}, status, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return nil, invalidStatus(order, string(status))
		}
	}

	noticeType := enums.NotificationTypeOrderStatus
	if status == enums.OrderStatusCancelled {
		noticeType = enums.NotificationTypeOrderCancelled
	}
	s.notifyBuyer(ctx, order, notifications.Notice{
		Type:    noticeType,
		Title:   fmt.Sprintf("Order %s is now %s", order.OrderNo, status),
		Content: fmt.Sprintf("Order %s moved from %s to %s.", order.OrderNo, order.Status, status),
	}.About(enums.ReferenceTypeOrder, order.ID))
	return s.load(ctx, id)
}

// Expire cancels an order that was never paid. It reports false when the
// order has moved on since it was picked.
func (s *service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return false, nil
	}
	err = s.cancel(ctx, order, []enums.OrderStatus{enums.OrderStatusPendingPayment})
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.notifyBuyer(ctx, order, notifications.Notice{
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   fmt.Sprintf("Order %s expired", order.OrderNo),
		Content: fmt.Sprintf("Order %s was cancelled because no payment arrived in time.", order.OrderNo),
	}.About(enums.ReferenceTypeOrder, order.ID))
	return true, nil
}

func (s *service) notifyBuyer(ctx context.Context, order *models.Order, notice notifications.Notice) {
	userID := order.UserID
	recipients, err := s.resolver.Resolve(ctx, notifications.AudienceBuyer, notifications.Subject{UserID: &userID})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), fmt.Sprintf("resolve order buyer: %v", err))
	}
	notifications.NotifyRecipients(ctx, s.notifier, recipients, notice)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.NotFoundOr(err, "order not found", "load order")
	}
	return order, nil
}

// orderCompany decides which company an order is booked against. Buyers
// always order for their own company; staff name one or inherit it from
// the inquiry.
func orderCompany(actor *pkgAuth.Actor, requested *uuid.UUID, inquiry *models.Inquiry) (uuid.UUID, error) {
	var companyID *uuid.UUID
	if actor.IsStaff() {
		companyID = requested
		if companyID == nil && inquiry != nil {
			companyID = inquiry.CompanyID
		}
		if companyID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "companyId is required when staff place an order")
		}
	} else {
		if actor.CompanyID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not linked to a company")
		}
		companyID = actor.CompanyID
	}
	if inquiry != nil && (inquiry.CompanyID == nil || *inquiry.CompanyID != *companyID) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "inquiry belongs to another company")
	}
	return *companyID, nil
}

func insufficientStock(sku *models.SKU, requested int) error {
	return pkgerrors.Messagef(pkgerrors.CodeBadRequest, "insufficient stock for sku %s", sku.SKUCode).
		WithDetails(map[string]any{"reason": "insufficient_stock", "skuId": sku.ID, "available": sku.Stock, "requested": requested})
}

func invalidStatus(order *models.Order, target string) error {
	return pkgerrors.Messagef(pkgerrors.CodeStateConflict, "order %s cannot be %s from %s", order.OrderNo, strings.ToLower(target), order.Status).
		WithDetails(map[string]any{"reason": "invalid_status", "status": order.Status})
}



