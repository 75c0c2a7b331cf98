package attributes

import (
	"context"
	"errors"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists attributes and their values.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func orderedValues(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

// List returns every attribute with its ordered values.
func (r *Repository) List(ctx context.Context) ([]models.Attribute, error) {
	var attrs []models.Attribute
	err := r.db.WithContext(ctx).
		Preload("Values", orderedValues).
		Order("code ASC").
		Find(&attrs).Error
	return attrs, err
}

// FindByID loads one attribute with its values.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	var attr models.Attribute
	err := r.db.WithContext(ctx).
		Preload("Values", orderedValues).
		Where("id = ?", id).
		Take(&attr).Error
	if err != nil {
		return nil, err
	}
	return &attr, nil
}

// FindByIDs loads the attributes with their values, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Attribute, error) {
	out := make(map[uuid.UUID]models.Attribute, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var attrs []models.Attribute
	if err := r.db.WithContext(ctx).
		Preload("Values", orderedValues).
		Where("id IN ?", ids).
		Find(&attrs).Error; err != nil {
		return nil, err
	}
	for _, a := range attrs {
		out[a.ID] = a
	}
	return out, nil
}

// Create inserts the attribute row only; values are inserted separately.
func (r *Repository) Create(ctx context.Context, attr *models.Attribute) error {
	return r.db.WithContext(ctx).Omit("Values").Create(attr).Error
}

// Update saves scalar columns of the attribute.
func (r *Repository) Update(ctx context.Context, attr *models.Attribute) error {
	return r.db.WithContext(ctx).
		Model(&models.Attribute{}).
		Where("id = ?", attr.ID).
		Updates(map[string]any{
			"name": attr.Name,
			"code": attr.Code,
			"type": attr.Type,
		}).Error
}

// Delete removes the attribute and its values.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("attribute_id = ?", id).Delete(&models.AttributeValue{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Attribute{}).Error
}

// CreateValue inserts one value.
func (r *Repository) CreateValue(ctx context.Context, value *models.AttributeValue) error {
	return r.db.WithContext(ctx).Create(value).Error
}

// UpdateValue saves the mutable columns of a value.
func (r *Repository) UpdateValue(ctx context.Context, value *models.AttributeValue) error {
	return r.db.WithContext(ctx).
		Model(&models.AttributeValue{}).
		Where("id = ? AND attribute_id = ?", value.ID, value.AttributeID).
		Updates(map[string]any{
			"value":      value.Value,
			"meta":       value.Meta,
			"sort_order": value.SortOrder,
		}).Error
}

// DeleteValues removes the given values of an attribute.
func (r *Repository) DeleteValues(ctx context.Context, attributeID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("attribute_id = ? AND id IN ?", attributeID, ids).
		Delete(&models.AttributeValue{}).Error
}

// MaxSortOrder returns the highest sort order among the attribute's values, or -1.
func (r *Repository) MaxSortOrder(ctx context.Context, attributeID uuid.UUID) (int, error) {
	var last models.AttributeValue
	err := r.db.WithContext(ctx).
		Where("attribute_id = ?", attributeID).
		Order("sort_order DESC").
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.SortOrder, nil
}

// ValuesInUse returns the subset of ids referenced by at least one live SKU.
func (r *Repository) ValuesInUse(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var used []uuid.UUID
	for _, id := range ids {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.SKU{}).
			Where("combination_key LIKE ?", "%"+id.String()+"%").
			Limit(1).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			used = append(used, id)
		}
	}
	return used, nil
}

// ProductCount returns how many live products use the attribute as a variant dimension.
func (r *Repository) ProductCount(ctx context.Context, attributeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("product_attributes pa").
		Joins("JOIN products p ON p.id = pa.product_id AND p.deleted_at IS NULL").
		Where("pa.attribute_id = ?", attributeID).
		Count(&count).Error
	return count, err
}
