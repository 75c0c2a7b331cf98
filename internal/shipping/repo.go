package shipping

import (
	"context"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for shipment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipping *models.Shipping) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipping repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shipping *models.Shipping) error {
	return r.db.WithContext(ctx).Create(shipping).Error
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error) {
	var shipping models.Shipping
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&shipping).Error; err != nil {
		return nil, err
	}
	return &shipping, nil
}
