package shipping

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
	"gorm.io/gorm"
)

// Service dispatches orders.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Shipping, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID, actor *pkgAuth.Actor) (*models.Shipping, error)
}

// CreateInput describes a dispatch. ShippedAt defaults to now.
type CreateInput struct {
	OrderID    uuid.UUID
	TrackingNo string
	Carrier    string
	ShippedAt  *time.Time
	Notes      *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the shipping service dependencies.
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

var shippableStatuses = []enums.OrderStatus{
	enums.OrderStatusPendingPayment,
	enums.OrderStatusProcessing,
}

// NewService wires the shipping service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("shipping repository required")
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

func (s *service) Create(ctx context.Context, input CreateInput, actor *pkgAuth.Actor) (*models.Shipping, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	trackingNo := strings.TrimSpace(input.TrackingNo)
	carrier := strings.TrimSpace(input.Carrier)
	if trackingNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trackingNo is required")
	}
	if carrier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier is required")
	}
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, db.NotFoundOr(err, "order not found", "load order")
	}
	if !canShip(order.Status) {
		return nil, notShippable(order)
	}

	shippedAt := s.now().UTC()
	if input.ShippedAt != nil {
		shippedAt = input.ShippedAt.UTC()
	}
	record := &models.Shipping{
		OrderID:    order.ID,
		TrackingNo: trackingNo,
		Carrier:    carrier,
		ShippedAt:  shippedAt,
		Notes:      input.Notes,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, shippableStatuses, enums.OrderStatusShipped, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order shipped")
		}
		if !ok {
			return notShippable(order)
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has a shipment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order shipped")
	userID := order.UserID
	recipients, err := s.resolver.Resolve(ctx, notifications.AudienceBuyer, notifications.Subject{UserID: &userID})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("resolve shipment recipient: %v", err))
	}
	notifications.NotifyRecipients(ctx, s.notifier, recipients, notifications.Notice{
		Type:    enums.NotificationTypeOrderShipped,
		Title:   fmt.Sprintf("Order %s has shipped", order.OrderNo),
		Content: fmt.Sprintf("Order %s left our warehouse with %s, tracking number %s.", order.OrderNo, carrier, trackingNo),
	}.About(enums.ReferenceTypeOrder, order.ID))
	return record, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID, actor *pkgAuth.Actor) (*models.Shipping, error) {
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
	record, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, db.NotFoundOr(err, "order has not shipped", "load shipment")
	}
	return record, nil
}

func canShip(status enums.OrderStatus) bool {
	for _, candidate := range shippableStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func notShippable(order *models.Order) error {
	return pkgerrors.Messagef(pkgerrors.CodeStateConflict, "order %s is %s and cannot be shipped", order.OrderNo, order.Status).
		WithDetails(map[string]any{"reason": "invalid_status", "status": order.Status})
}

