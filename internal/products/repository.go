package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wires together the product, product attribute and SKU tables.
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

func orderedSKUs(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, sku_code ASC")
}

func orderedAttributes(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func orderedValues(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

// FindByID loads the product with its attributes (and their values) and live SKUs.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Attributes", orderedAttributes).
		Preload("Attributes.Attribute").
		Preload("Attributes.Attribute.Values", orderedValues).
		Preload("SKUs", orderedSKUs).
		Where("id = ?", id).
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns one page of products matching filter, plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Product{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	var products []models.Product
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Product{}), filter).
		Preload("SKUs", orderedSKUs).
		Order(sortClause(filter.Sort)).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func sortClause(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "products.base_price ASC, products.created_at DESC"
	case SortPriceDesc:
		return "products.base_price DESC, products.created_at DESC"
	default:
		return "products.created_at DESC, products.id DESC"
	}
}

func (r *Repository) applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where(
			"(LOWER(products.code) LIKE ? ESCAPE '\\' OR LOWER(CAST(products.title AS TEXT)) LIKE ? ESCAPE '\\')",
			pattern, pattern,
		)
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.MinPrice != nil {
		query = query.Where("products.base_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("products.base_price <= ?", *filter.MaxPrice)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where("CAST(products.tags AS TEXT) LIKE ? ESCAPE '\\'", `%"`+escapeLike(tag)+`"%`)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("products.id IN ?", filter.IDs)
	}
	if filter.Status != nil {
		query = query.Where("products.status = ?", *filter.Status)
	}
	for _, valueIDs := range filter.Attributes {
		if len(valueIDs) == 0 {
			continue
		}
		conds := make([]string, 0, len(valueIDs))
		args := make([]any, 0, len(valueIDs))
		for _, id := range valueIDs {
			conds = append(conds, "s.combination_key LIKE ?")
			args = append(args, "%"+id.String()+"%")
		}
		query = query.Where(
			"EXISTS (SELECT 1 FROM skus s WHERE s.product_id = products.id AND s.deleted_at IS NULL AND ("+strings.Join(conds, " OR ")+"))",
			args...,
		)
	}
	return query
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

// Create inserts the product row without associations.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// UpdateFields writes the given product columns.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

// Delete soft-deletes the product.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// ReplaceAttributes rewrites the product's attribute links. The link table
// carries no history so a rewrite is safe.
func (r *Repository) ReplaceAttributes(ctx context.Context, productID uuid.UUID, links []models.ProductAttribute) error {
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductAttribute{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&links).Error
}

// CreateSKU inserts one SKU.
func (r *Repository) CreateSKU(ctx context.Context, sku *models.SKU) error {
	return r.db.WithContext(ctx).Create(sku).Error
}

// UpdateSKU saves the mutable SKU columns.
func (r *Repository) UpdateSKU(ctx context.Context, sku *models.SKU) error {
	return r.db.WithContext(ctx).
		Model(&models.SKU{}).
		Where("id = ?", sku.ID).
		Updates(map[string]any{
			"sku_code":            sku.SKUCode,
			"combination_key":     sku.CombinationKey,
			"price":               sku.Price,
			"stock":               sku.Stock,
			"moq":                 sku.MOQ,
			"image":               sku.Image,
			"tier_prices":         sku.TierPrices,
			"attribute_value_ids": sku.AttributeValueIDs,
		}).Error
}

// ReviveSKU restores a retired SKU with new column values.
func (r *Repository) ReviveSKU(ctx context.Context, sku *models.SKU) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.SKU{}).
		Where("id = ?", sku.ID).
		Updates(map[string]any{
			"sku_code":            sku.SKUCode,
			"combination_key":     sku.CombinationKey,
			"price":               sku.Price,
			"stock":               sku.Stock,
			"moq":                 sku.MOQ,
			"image":               sku.Image,
			"tier_prices":         sku.TierPrices,
			"attribute_value_ids": sku.AttributeValueIDs,
			"deleted_at":          nil,
		}).Error
}

// RetiredSKUs lists the soft-deleted SKUs of a product.
func (r *Repository) RetiredSKUs(ctx context.Context, productID uuid.UUID) ([]models.SKU, error) {
	var skus []models.SKU
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("product_id = ? AND deleted_at IS NOT NULL", productID).
		Order("deleted_at DESC").
		Find(&skus).Error
	return skus, err
}

// SKUReferenced reports whether an order item or inquiry item points at the SKU.
func (r *Repository) SKUReferenced(ctx context.Context, skuID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("sku_id = ?", skuID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.InquiryItem{}).Where("sku_id = ?", skuID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SoftDeleteSKUs marks the SKUs deleted while keeping them for history.
func (r *Repository) SoftDeleteSKUs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.SKU{}).Error
}

// HardDeleteSKUs removes the SKUs permanently.
func (r *Repository) HardDeleteSKUs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&models.SKU{}).Error
}

// SoftDeleteSKUsByProduct retires every live SKU of the product.
func (r *Repository) SoftDeleteSKUsByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.SKU{}).Error
}

// TakenSKUCodes returns the codes among codes already used by another SKU,
// including retired ones.
func (r *Repository) TakenSKUCodes(ctx context.Context, codes []string, exclude []uuid.UUID) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Unscoped().Model(&models.SKU{}).Where("sku_code IN ?", codes)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var taken []string
	err := query.Order("sku_code ASC").Pluck("sku_code", &taken).Error
	return taken, err
}

// FindSKU loads a live SKU with its product.
func (r *Repository) FindSKU(ctx context.Context, id uuid.UUID) (*models.SKU, *models.Product, error) {
	var sku models.SKU
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&sku).Error; err != nil {
		return nil, nil, err
	}
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", sku.ProductID).Take(&product).Error; err != nil {
		return nil, nil, err
	}
	return &sku, &product, nil
}

// FindSKUsByCodes loads live SKUs keyed by code.
func (r *Repository) FindSKUsByCodes(ctx context.Context, codes []string) (map[string]models.SKU, error) {
	out := make(map[string]models.SKU, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var skus []models.SKU
	if err := r.db.WithContext(ctx).Where("sku_code IN ?", codes).Find(&skus).Error; err != nil {
		return nil, err
	}
	for _, sku := range skus {
		out[sku.SKUCode] = sku
	}
	return out, nil
}

// DecrementStock takes qty units from a live SKU only if enough remain. It
// reports false when the guard rejected the update.
func (r *Repository) DecrementStock(ctx context.Context, skuID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SKU{}).
		Where("id = ? AND stock >= ?", skuID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RestoreStock returns qty units to the SKU, retired or not.
func (r *Repository) RestoreStock(ctx context.Context, skuID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.SKU{}).
		Where("id = ?", skuID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
