package settings

import (
	"context"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists system settings and exchange rates.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the settings repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that writes through tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) List(ctx context.Context) ([]models.SystemSetting, error) {
	var rows []models.SystemSetting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	var row models.SystemSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Upsert(ctx context.Context, setting *models.SystemSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}

func (r *Repository) ListRates(ctx context.Context) ([]models.ExchangeRate, error) {
	var rows []models.ExchangeRate
	err := r.db.WithContext(ctx).Order("currency ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) UpsertRate(ctx context.Context, rate *models.ExchangeRate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
	}).Create(rate).Error
}
