package inquiries

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists inquiries, their items and message threads.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM handle.
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

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

// Count returns the total number of inquiries ever created.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Inquiry{}).Count(&n).Error
	return n, err
}

// Create inserts the inquiry and its items.
func (r *Repository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

// FindByID loads an inquiry with its ordered items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ?", id).
		Take(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// List returns a page of inquiries, newest first. A non-nil companyID scopes
// the listing to that company.
func (r *Repository) List(ctx context.Context, filter ListFilter, companyID *uuid.UUID) ([]models.Inquiry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Inquiry{})
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		query = query.Where(
			"LOWER(inquiry_no) LIKE ? ESCAPE '\\' OR LOWER(contact_name) LIKE ? ESCAPE '\\' OR LOWER(contact_email) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(company_name, '')) LIKE ? ESCAPE '\\'",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Inquiry
	err := query.
		Preload("Items", orderedItems).
		Order("created_at DESC, id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&rows).Error
	return rows, total, err
}

// UpdateFields applies scalar column changes.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Updates(fields).Error
}

// SetStatus moves the inquiry to status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.InquiryStatus) error {
	return r.db.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Update("status", status).Error
}

// CreateItem inserts one item.
func (r *Repository) CreateItem(ctx context.Context, item *models.InquiryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem rewrites the mutable columns of one item.
func (r *Repository) UpdateItem(ctx context.Context, item *models.InquiryItem) error {
	return r.db.WithContext(ctx).
		Model(&models.InquiryItem{}).
		Where("id = ? AND inquiry_id = ?", item.ID, item.InquiryID).
		Updates(map[string]any{
			"product_id":   item.ProductID,
			"sku_id":       item.SKUID,
			"sku_specs":    item.SKUSpecs,
			"quantity":     item.Quantity,
			"target_price": item.TargetPrice,
			"quoted_price": item.QuotedPrice,
			"sort_order":   item.SortOrder,
		}).Error
}

// DeleteItems removes items of the inquiry by id.
func (r *Repository) DeleteItems(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("inquiry_id = ? AND id IN ?", inquiryID, ids).
		Delete(&models.InquiryItem{}).Error
}

// CreateMessage appends a message to the thread.
func (r *Repository) CreateMessage(ctx context.Context, msg *models.InquiryMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns the thread oldest first.
func (r *Repository) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryMessage, error) {
	var rows []models.InquiryMessage
	err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// CloseStale closes PENDING inquiries not touched since cutoff.
func (r *Repository) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("status = ? AND updated_at < ?", enums.InquiryStatusPending, cutoff).
		Update("status", enums.InquiryStatusClosed)
	return result.RowsAffected, result.Error
}

// ProductsByID loads products, retired ones included, for document rendering.
func (r *Repository) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// SKUCodes maps SKU ids, retired ones included, to their codes.
func (r *Repository) SKUCodes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.SKU
	if err := r.db.WithContext(ctx).Unscoped().Select("id", "sku_code").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, s := range rows {
		out[s.ID] = s.SKUCode
	}
	return out, nil
}

// ValueLabels loads attribute value labels by id.
func (r *Repository) ValueLabels(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.AttributeValue, error) {
	out := make(map[uuid.UUID]models.AttributeValue, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.AttributeValue
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// LiveProductIDs reports which of ids are live products.
func (r *Repository) LiveProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// LiveSKUProducts maps each live SKU among ids to the product it belongs to.
func (r *Repository) LiveSKUProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	out := make(map[uuid.UUID]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.SKU
	if err := r.db.WithContext(ctx).Select("id", "product_id").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, s := range rows {
		out[s.ID] = s.ProductID
	}
	return out, nil
}
