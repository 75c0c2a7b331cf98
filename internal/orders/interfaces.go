package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, companyID *uuid.UUID) ([]models.Order, int64, error)
	// TransitionStatus moves the order to `to` only while it is in one of
	// `from`. It reports false when the guard did not match.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, extra map[string]any) (bool, error)
	FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	FindShipping(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error)
	FindPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// Clock is the time source used for numbering and timestamps.
type Clock func() time.Time
