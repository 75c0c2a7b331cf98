package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog management and browse operations.
type Service interface {
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GenerateMatrix(ctx context.Context, input MatrixInput) ([]SKURow, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type attributeLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Attribute, error)
}

type service struct {
	repo       *Repository
	tx         txRunner
	attributes attributeLoader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, attributes attributeLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if attributes == nil {
		return nil, fmt.Errorf("attribute loader required")
	}
	return &service{repo: repo, tx: tx, attributes: attributes}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	switch filter.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc:
	default:
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "unsupported sort %q", filter.Sort)
	}
	filter.Page = filter.Page.Normalize()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	if items == nil {
		items = []models.Product{}
	}
	return &ListResult{Items: items, Total: total, Page: filter.Page.Page, Limit: filter.Page.Limit}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if input.Title.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "basePrice cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", status)
	}

	attrs, err := s.loadAttributes(ctx, input.Attributes)
	if err != nil {
		return nil, err
	}
	skus, err := buildSKUs(input.SKUs, input.BasePrice, attrs)
	if err != nil {
		return nil, err
	}
	for i := range skus {
		skus[i].ID = uuid.Nil
	}

	product := &models.Product{
		Code:        code,
		Title:       input.Title,
		Description: input.Description,
		BasePrice:   input.BasePrice,
		CategoryID:  input.CategoryID,
		Images:      cleanStrings(input.Images),
		Tags:        cleanStrings(input.Tags),
		Status:      status,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureCodesFree(ctx, txRepo, skus, nil); err != nil {
			return err
		}
		if err := txRepo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		if err := txRepo.ReplaceAttributes(ctx, product.ID, attributeLinks(product.ID, input.Attributes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product attributes")
		}
		for i := range skus {
			skus[i].ProductID = product.ID
			if err := txRepo.CreateSKU(ctx, &skus[i]); err != nil {
				return mapSKUWriteError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, product.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}

	fields := map[string]any{}
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
		}
		fields["code"] = code
	}
	if input.Title != nil {
		if input.Title.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	basePrice := current.BasePrice
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "basePrice cannot be negative")
		}
		basePrice = *input.BasePrice
		fields["base_price"] = basePrice
	}
	if input.ClearCategory {
		fields["category_id"] = nil
	} else if input.CategoryID != nil {
		fields["category_id"] = *input.CategoryID
	}
	if input.Images != nil {
		fields["images"] = cleanStrings(*input.Images)
	}
	if input.Tags != nil {
		fields["tags"] = cleanStrings(*input.Tags)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid status %q", *input.Status)
		}
		fields["status"] = *input.Status
	}

	attrInputs := currentAttributeInputs(current)
	if input.Attributes != nil {
		attrInputs = *input.Attributes
	}
	attrs, err := s.loadAttributes(ctx, attrInputs)
	if err != nil {
		return nil, err
	}

	var plan *skuPlan
	if input.SKUs != nil {
		incoming, err := buildSKUs(*input.SKUs, basePrice, attrs)
		if err != nil {
			return nil, err
		}
		retired, err := s.repo.RetiredSKUs(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retired skus")
		}
		plan, err = planSKUs(current.SKUs, retired, *input.SKUs, incoming)
		if err != nil {
			return nil, err
		}
	} else if input.Attributes != nil {
		// Attribute changes without a SKU list must still leave every live SKU valid.
		if err := validateExisting(current.SKUs, attrs); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if input.Attributes != nil {
			if err := txRepo.ReplaceAttributes(ctx, id, attributeLinks(id, attrInputs)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product attributes")
			}
		}
		if plan != nil {
			return applySKUPlan(ctx, txRepo, id, plan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, id); err != nil {
			return mapLoadError(err)
		}
		if err := txRepo.SoftDeleteSKUsByProduct(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire product skus")
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

func (s *service) GenerateMatrix(ctx context.Context, input MatrixInput) ([]SKURow, error) {
	prefix := strings.TrimSpace(input.Prefix)
	basePrice := decimal.Zero
	if input.BasePrice != nil {
		basePrice = *input.BasePrice
	}
	existing := input.Existing

	if input.ProductID != nil {
		product, err := s.repo.FindByID(ctx, *input.ProductID)
		if err != nil {
			return nil, mapLoadError(err)
		}
		if prefix == "" {
			prefix = product.Code
		}
		if input.BasePrice == nil {
			basePrice = product.BasePrice
		}
		if existing == nil {
			existing = rowsFromSKUs(product.SKUs)
		}
	}

	ids := make([]uuid.UUID, 0, len(input.Selections))
	for _, sel := range input.Selections {
		ids = append(ids, sel.AttributeID)
	}
	attrs, err := s.attributes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attributes")
	}

	selections := make([]AttributeSelection, 0, len(input.Selections))
	for i, sel := range input.Selections {
		attr, ok := attrs[sel.AttributeID]
		if !ok {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "selections[%d]: unknown attribute", i)
		}
		labels := make(map[uuid.UUID]types.LocalizedText, len(attr.Values))
		for _, v := range attr.Values {
			labels[v.ID] = v.Value
		}
		values := make([]MatrixValue, 0, len(sel.ValueIDs))
		for _, vid := range sel.ValueIDs {
			label, ok := labels[vid]
			if !ok {
				return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "selections[%d]: value %s does not belong to attribute %s", i, vid, attr.Code)
			}
			values = append(values, MatrixValue{ID: vid, Label: label})
		}
		selections = append(selections, AttributeSelection{AttributeID: attr.ID, Values: values})
	}

	return GenerateMatrix(prefix, basePrice, selections, existing), nil
}

func (s *service) loadAttributes(ctx context.Context, inputs []ProductAttributeInput) (map[uuid.UUID]models.Attribute, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for i, in := range inputs {
		if _, dup := seen[in.AttributeID]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "attributes[%d]: duplicate attribute", i)
		}
		seen[in.AttributeID] = struct{}{}
		ids = append(ids, in.AttributeID)
	}
	attrs, err := s.attributes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attributes")
	}
	for i, id := range ids {
		if _, ok := attrs[id]; !ok {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "attributes[%d]: unknown attribute", i)
		}
	}
	return attrs, nil
}

// buildSKUs validates the incoming rows and turns them into models. Each
// row must pick exactly one value per product attribute.
func buildSKUs(inputs []SKUInput, basePrice decimal.Decimal, attrs map[uuid.UUID]models.Attribute) ([]models.SKU, error) {
	valueOwner := make(map[uuid.UUID]uuid.UUID)
	for _, attr := range attrs {
		for _, v := range attr.Values {
			valueOwner[v.ID] = attr.ID
		}
	}

	codes := make(map[string]int, len(inputs))
	keys := make(map[string]int, len(inputs))
	out := make([]models.SKU, 0, len(inputs))
	for i, in := range inputs {
		code := strings.TrimSpace(in.SKUCode)
		if code == "" {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].skuCode is required", i)
		}
		if prev, dup := codes[code]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeConflict, "skus[%d] repeats skuCode %s of skus[%d]", i, code, prev).
				WithDetails(map[string]any{"reason": "duplicate_sku_code", "skuCodes": []string{code}})
		}
		codes[code] = i
		if len(attrs) == 0 && i > 0 {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation,
				"skus[%d]: a product without attributes has a single sku", i)
		}

		if err := checkCombination(in.AttributeValueIDs, valueOwner, len(attrs)); err != nil {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d]: %s", i, err.Error())
		}
		key := CombinationKey(in.AttributeValueIDs)
		if prev, dup := keys[key]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d] repeats the combination of skus[%d]", i, prev)
		}
		keys[key] = i

		price := basePrice
		if in.Price != nil {
			price = *in.Price
		}
		if price.IsNegative() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].price cannot be negative", i)
		}
		if in.Stock < 0 {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].stock cannot be negative", i)
		}
		moq := in.MOQ
		if moq == 0 {
			moq = 1
		}
		if moq < 1 {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].moq must be at least 1", i)
		}
		tiers, err := normalizeTiers(in.TierPrices)
		if err != nil {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].tierPrices: %s", i, err.Error())
		}

		ids := make(types.UUIDList, len(in.AttributeValueIDs))
		copy(ids, in.AttributeValueIDs)
		sku := models.SKU{
			SKUCode:           code,
			CombinationKey:    key,
			Price:             price,
			Stock:             in.Stock,
			MOQ:               moq,
			Image:             in.Image,
			TierPrices:        tiers,
			AttributeValueIDs: ids,
		}
		if in.ID != nil {
			sku.ID = *in.ID
		}
		out = append(out, sku)
	}
	return out, nil
}

func checkCombination(valueIDs []uuid.UUID, valueOwner map[uuid.UUID]uuid.UUID, attrCount int) error {
	if attrCount == 0 {
		if len(valueIDs) > 0 {
			return errors.New("product has no attributes; attributeValueIds must be empty")
		}
		return nil
	}
	if len(valueIDs) != attrCount {
		return fmt.Errorf("expected %d attribute values, got %d", attrCount, len(valueIDs))
	}
	covered := make(map[uuid.UUID]struct{}, attrCount)
	for _, vid := range valueIDs {
		owner, ok := valueOwner[vid]
		if !ok {
			return fmt.Errorf("value %s does not belong to the product attributes", vid)
		}
		if _, dup := covered[owner]; dup {
			return fmt.Errorf("more than one value for attribute %s", owner)
		}
		covered[owner] = struct{}{}
	}
	return nil
}

func validateExisting(skus []models.SKU, attrs map[uuid.UUID]models.Attribute) error {
	valueOwner := make(map[uuid.UUID]uuid.UUID)
	for _, attr := range attrs {
		for _, v := range attr.Values {
			valueOwner[v.ID] = attr.ID
		}
	}
	for _, sku := range skus {
		if err := checkCombination(sku.AttributeValueIDs, valueOwner, len(attrs)); err != nil {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "sku %s no longer fits the attributes: %s; send the regenerated skus", sku.SKUCode, err.Error())
		}
	}
	return nil
}

func normalizeTiers(tiers types.TierPrices) (types.TierPrices, error) {
	seen := make(map[int]struct{}, len(tiers))
	for _, t := range tiers {
		if t.MinQty < 1 {
			return nil, errors.New("minQty must be at least 1")
		}
		if t.Price.IsNegative() {
			return nil, errors.New("price cannot be negative")
		}
		if _, dup := seen[t.MinQty]; dup {
			return nil, fmt.Errorf("duplicate minQty %d", t.MinQty)
		}
		seen[t.MinQty] = struct{}{}
	}
	return tiers.Sorted(), nil
}

// skuPlan is the outcome of matching incoming rows against stored SKUs.
type skuPlan struct {
	updates []models.SKU
	revived []models.SKU
	inserts []models.SKU
	removed []uuid.UUID
}

// planSKUs matches incoming rows to live SKUs by explicit id first, then the
// remaining rows by combination key, so a key match never claims a SKU that a
// later row names by id. Rows that match a retired SKU of the product revive
// it, so a combination that comes back keeps its code and history.
func planSKUs(current, retired []models.SKU, inputs []SKUInput, incoming []models.SKU) (*skuPlan, error) {
	retiredByKey := make(map[string]models.SKU, len(retired))
	for _, sku := range retired {
		if _, ok := retiredByKey[sku.CombinationKey]; !ok {
			retiredByKey[sku.CombinationKey] = sku
		}
	}

	byID := make(map[uuid.UUID]models.SKU, len(current))
	byKey := make(map[string]models.SKU, len(current))
	for _, sku := range current {
		byID[sku.ID] = sku
		byKey[sku.CombinationKey] = sku
	}

	matched := make(map[uuid.UUID]struct{}, len(current))
	plan := &skuPlan{}
	for i, row := range incoming {
		id := inputs[i].ID
		if id == nil {
			continue
		}
		if _, ok := byID[*id]; !ok {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].id does not belong to this product", i)
		}
		if _, dup := matched[*id]; dup {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "skus[%d].id is listed twice", i)
		}
		matched[*id] = struct{}{}
		plan.updates = append(plan.updates, row)
	}

	for i, row := range incoming {
		if inputs[i].ID != nil {
			continue
		}
		if prev, ok := byKey[row.CombinationKey]; ok {
			if _, taken := matched[prev.ID]; !taken {
				row.ID = prev.ID
				matched[prev.ID] = struct{}{}
				plan.updates = append(plan.updates, row)
				continue
			}
		}
		if prev, ok := retiredByKey[row.CombinationKey]; ok && row.CombinationKey != "" {
			row.ID = prev.ID
			delete(retiredByKey, row.CombinationKey)
			plan.revived = append(plan.revived, row)
			continue
		}
		plan.inserts = append(plan.inserts, row)
	}
	for _, sku := range current {
		if _, ok := matched[sku.ID]; !ok {
			plan.removed = append(plan.removed, sku.ID)
		}
	}
	return plan, nil
}

func applySKUPlan(ctx context.Context, repo *Repository, productID uuid.UUID, plan *skuPlan) error {
	var soft, hard []uuid.UUID
	for _, id := range plan.removed {
		referenced, err := repo.SKUReferenced(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku references")
		}
		if referenced {
			soft = append(soft, id)
		} else {
			hard = append(hard, id)
		}
	}
	if err := repo.HardDeleteSKUs(ctx, hard); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete skus")
	}
	if err := repo.SoftDeleteSKUs(ctx, soft); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire skus")
	}

	all := append(append(append([]models.SKU{}, plan.updates...), plan.revived...), plan.inserts...)
	exclude := make([]uuid.UUID, 0, len(plan.updates)+len(plan.revived))
	for _, u := range plan.updates {
		exclude = append(exclude, u.ID)
	}
	for _, u := range plan.revived {
		exclude = append(exclude, u.ID)
	}
	if err := ensureCodesFree(ctx, repo, all, exclude); err != nil {
		return err
	}

	for i := range plan.updates {
		if err := repo.UpdateSKU(ctx, &plan.updates[i]); err != nil {
			return mapSKUWriteError(err)
		}
	}
	for i := range plan.revived {
		if err := repo.ReviveSKU(ctx, &plan.revived[i]); err != nil {
			return mapSKUWriteError(err)
		}
	}
	for i := range plan.inserts {
		plan.inserts[i].ProductID = productID
		if err := repo.CreateSKU(ctx, &plan.inserts[i]); err != nil {
			return mapSKUWriteError(err)
		}
	}
	return nil
}

func ensureCodesFree(ctx context.Context, repo *Repository, skus []models.SKU, exclude []uuid.UUID) error {
	codes := make([]string, 0, len(skus))
	for _, sku := range skus {
		codes = append(codes, sku.SKUCode)
	}
	taken, err := repo.TakenSKUCodes(ctx, codes, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku codes")
	}
	if len(taken) > 0 {
		return pkgerrors.Messagef(pkgerrors.CodeConflict, "sku code already exists: %s", strings.Join(taken, ", ")).
			WithDetails(map[string]any{"reason": "duplicate_sku_code", "skuCodes": taken})
	}
	return nil
}

func attributeLinks(productID uuid.UUID, inputs []ProductAttributeInput) []models.ProductAttribute {
	links := make([]models.ProductAttribute, 0, len(inputs))
	for i, in := range inputs {
		order := i
		if in.SortOrder != nil {
			order = *in.SortOrder
		}
		links = append(links, models.ProductAttribute{ProductID: productID, AttributeID: in.AttributeID, SortOrder: order})
	}
	return links
}

func currentAttributeInputs(product *models.Product) []ProductAttributeInput {
	out := make([]ProductAttributeInput, 0, len(product.Attributes))
	for _, link := range product.Attributes {
		order := link.SortOrder
		out = append(out, ProductAttributeInput{AttributeID: link.AttributeID, SortOrder: &order})
	}
	return out
}

func rowsFromSKUs(skus []models.SKU) []SKURow {
	rows := make([]SKURow, 0, len(skus))
	for _, sku := range skus {
		id := sku.ID
		rows = append(rows, SKURow{
			ID:                &id,
			SKUCode:           sku.SKUCode,
			CombinationKey:    sku.CombinationKey,
			AttributeValueIDs: append([]uuid.UUID{}, sku.AttributeValueIDs...),
			Price:             sku.Price,
			Stock:             sku.Stock,
			MOQ:               sku.MOQ,
			Image:             sku.Image,
			TierPrices:        sku.TierPrices,
		})
	}
	return rows
}

func cleanStrings(in []string) types.StringList {
	out := make(types.StringList, 0, len(in))
	for _, s := range in {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func mapSKUWriteError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "sku code already exists").
			WithDetails(map[string]any{"reason": "duplicate_sku_code"})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write sku")
}
