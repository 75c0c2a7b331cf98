package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/angelmondragon/tradedesk-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service records payments against orders and settles wire transfers.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, actor *pkgAuth.Actor) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, actor *pkgAuth.Actor) ([]models.Payment, error)
}

// CreateInput is a payment reported by a buyer or recorded by staff.
type CreateInput struct {
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
	TransactionID string
	ProofURL      *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the payment service dependencies.
type ServiceParams struct {
	Repository Repository
	Orders     orders.Repository
	Tx         txRunner
	Notifier   notifications.Notifier
	Resolver   notifications.RecipientResolver
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	orders   orders.Repository
	tx       txRunner
	notifier notifications.Notifier
	resolver notifications.RecipientResolver
	logg     *logger.Logger
	now      func() time.Time
}

var closedOrderStatuses = map[enums.OrderStatus]struct{}{
	enums.OrderStatusShipped:   {},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// NewService wires the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
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
		repo:     params.Repository,
		orders:   params.Orders,
		tx:       params.Tx,
		notifier: params.Notifier,
		resolver: params.Resolver,
		logg:     logg,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid payment method %q", input.Method)
	}
	order, err := s.accessibleOrder(ctx, input.OrderID, actor)
	if err != nil {
		return nil, err
	}
	if err := checkOrderOpen(order); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:       order.ID,
		Amount:        input.Amount,
		Method:        input.Method,
		Status:        enums.PaymentStatusPending,
		TransactionID: strings.TrimSpace(input.TransactionID),
		ProofURL:      input.ProofURL,
	}
	if !input.Method.RequiresApproval() {
		paidAt := s.now().UTC()
		payment.Status = enums.PaymentStatusCompleted
		payment.PaidAt = &paidAt
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if payment.Status != enums.PaymentStatusCompleted {
			return nil
		}
		return s.markProcessing(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	amount := fmt.Sprintf("%s %s", payment.Amount.StringFixed(2), order.Currency)
	if payment.Status == enums.PaymentStatusPending {
		s.notifier.NotifyAdmin(ctx, notifications.Notice{
			Type:    enums.NotificationTypePaymentPending,
			Title:   fmt.Sprintf("Wire transfer to verify for %s", order.OrderNo),
			Content: fmt.Sprintf("A wire transfer of %s was reported for order %s.", amount, order.OrderNo),
		}.About(enums.ReferenceTypePayment, payment.ID))
	} else {
		s.notifyBuyer(ctx, order, notifications.Notice{
			Type:    enums.NotificationTypePaymentCompleted,
			Title:   fmt.Sprintf("Payment received for %s", order.OrderNo),
			Content: fmt.Sprintf("We received %s for order %s.", amount, order.OrderNo),
		}.About(enums.ReferenceTypePayment, payment.ID))
	}
	return payment, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, actor *pkgAuth.Actor) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid payment status %q", status)
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.NotFoundOr(err, "payment not found", "load payment")
	}
	if payment.Status != enums.PaymentStatusPending || status == enums.PaymentStatusPending {
		return nil, settleConflict(payment, status)
	}
	order, err := s.orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, db.NotFoundOr(err, "order not found", "load order")
	}
	// A rejection still settles the payment; only approval needs an open order.
	if status == enums.PaymentStatusCompleted {
		if err := checkOrderOpen(order); err != nil {
			return nil, err
		}
	}

	extra := map[string]any{}
	if status == enums.PaymentStatusCompleted {
		extra["paid_at"] = s.now().UTC()
		extra["approved_by"] = actor.UserID
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Settle(ctx, id, enums.PaymentStatusPending, status, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
		}
		if !ok {
			return settleConflict(payment, status)
		}
		if status != enums.PaymentStatusCompleted {
			return nil
		}
		return s.markProcessing(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.NotFoundOr(err, "payment not found", "load payment")
	}
	amount := fmt.Sprintf("%s %s", updated.Amount.StringFixed(2), order.Currency)
	notice := notifications.Notice{
		Type:    enums.NotificationTypePaymentApproved,
		Title:   fmt.Sprintf("Payment confirmed for %s", order.OrderNo),
		Content: fmt.Sprintf("Your wire transfer of %s for order %s was confirmed.", amount, order.OrderNo),
	}
	if status == enums.PaymentStatusRejected {
		notice = notifications.Notice{
			Type:    enums.NotificationTypePaymentRejected,
			Title:   fmt.Sprintf("Payment rejected for %s", order.OrderNo),
			Content: fmt.Sprintf("Your payment of %s for order %s could not be verified.", amount, order.OrderNo),
		}
	}
	s.notifyBuyer(ctx, order, notice.About(enums.ReferenceTypePayment, updated.ID))
	return updated, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID, actor *pkgAuth.Actor) ([]models.Payment, error) {
	if _, err := s.accessibleOrder(ctx, orderID, actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return rows, nil
}

// markProcessing starts fulfilment once money is in. Orders already past
// PENDING_PAYMENT are left alone.
func (s *service) markProcessing(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	_, err := s.orders.WithTx(tx).TransitionStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPendingPayment}, enums.OrderStatusProcessing, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order")
	}
	return nil
}

func (s *service) accessibleOrder(ctx context.Context, orderID uuid.UUID, actor *pkgAuth.Actor) (*models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, db.NotFoundOr(err, "order not found", "load order")
	}
	companyID := order.CompanyID
	if !actor.CanAccessCompany(&companyID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another company")
	}
	return order, nil
}

func (s *service) notifyBuyer(ctx context.Context, order *models.Order, notice notifications.Notice) {
	userID := order.UserID
	recipients, err := s.resolver.Resolve(ctx, notifications.AudienceBuyer, notifications.Subject{UserID: &userID})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), fmt.Sprintf("resolve payment recipient: %v", err))
	}
	notifications.NotifyRecipients(ctx, s.notifier, recipients, notice)
}

func checkOrderOpen(order *models.Order) error {
	if _, closed := closedOrderStatuses[order.Status]; !closed {
		return nil
	}
	return pkgerrors.Messagef(pkgerrors.CodeStateConflict, "order %s is %s and accepts no payments", order.OrderNo, order.Status).
		WithDetails(map[string]any{"reason": "invalid_status", "status": order.Status})
}

func settleConflict(payment *models.Payment, to enums.PaymentStatus) error {
	return pkgerrors.Messagef(pkgerrors.CodeStateConflict, "payment cannot move from %s to %s", payment.Status, to).
		WithDetails(map[string]any{"reason": "invalid_status", "status": payment.Status})
}

