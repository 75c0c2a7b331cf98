package attributes

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
	"gorm.io/gorm"
)

// Service manages variant attributes and their values.
type Service interface {
	List(ctx context.Context) ([]models.Attribute, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Attribute, error)
	Create(ctx context.Context, input CreateInput) (*models.Attribute, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Attribute, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddValue(ctx context.Context, attributeID uuid.UUID, input ValueInput) (*models.AttributeValue, error)
	DeleteValue(ctx context.Context, attributeID, valueID uuid.UUID) error
}

// ValueInput describes one attribute value. A nil ID means a new value.
type ValueInput struct {
	ID        *uuid.UUID
	Value     types.LocalizedText
	Meta      *string
	SortOrder *int
}

// CreateInput holds the payload to create an attribute.
type CreateInput struct {
	Name   types.LocalizedText
	Code   string
	Type   enums.AttributeType
	Values []ValueInput
}

// UpdateInput holds optional attribute mutations. A nil Values leaves the
// value list untouched; a non-nil one is reconciled against the stored rows.
type UpdateInput struct {
	Name   *types.LocalizedText
	Code   *string
	Type   *enums.AttributeType
	Values *[]ValueInput
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs the attribute service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attribute repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]models.Attribute, error) {
	attrs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attributes")
	}
	if attrs == nil {
		attrs = []models.Attribute{}
	}
	return attrs, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	attr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return attr, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Attribute, error) {
	code := normalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if input.Name.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid attribute type %q", input.Type)
	}
	for i, v := range input.Values {
		if v.Value.IsZero() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "values[%d].value is required", i)
		}
	}

	attr := &models.Attribute{Name: input.Name, Code: code, Type: input.Type}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, attr); err != nil {
			return mapWriteError(err, "insert attribute")
		}
		for i, v := range input.Values {
			row := newValueRow(attr.ID, v, i)
			if err := txRepo.CreateValue(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attribute value")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, attr.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Attribute, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		attr, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}

		if input.Name != nil {
			if input.Name.IsZero() {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			attr.Name = *input.Name
		}
		if input.Code != nil {
			code := normalizeCode(*input.Code)
			if code == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
			}
			attr.Code = code
		}
		if input.Type != nil {
			if !input.Type.IsValid() {
				return pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid attribute type %q", *input.Type)
			}
			attr.Type = *input.Type
		}
		if err := txRepo.Update(ctx, attr); err != nil {
			return mapWriteError(err, "update attribute")
		}

		if input.Values == nil {
			return nil
		}
		return reconcileValues(ctx, txRepo, attr, *input.Values)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// reconcileValues updates known values in place, inserts new ones and deletes
// the ones no longer listed. Deleting a value a live SKU still uses is refused.
func reconcileValues(ctx context.Context, repo *Repository, attr *models.Attribute, incoming []ValueInput) error {
	existing := make(map[uuid.UUID]models.AttributeValue, len(attr.Values))
	for _, v := range attr.Values {
		existing[v.ID] = v
	}

	kept := make(map[uuid.UUID]struct{}, len(incoming))
	for i, in := range incoming {
		if in.Value.IsZero() {
			return pkgerrors.Messagef(pkgerrors.CodeValidation, "values[%d].value is required", i)
		}
		if in.ID != nil {
			if _, ok := existing[*in.ID]; !ok {
				return pkgerrors.Messagef(pkgerrors.CodeValidation, "values[%d].id does not belong to this attribute", i)
			}
			kept[*in.ID] = struct{}{}
		}
	}

	var removed []uuid.UUID
	for _, v := range attr.Values {
		if _, ok := kept[v.ID]; !ok {
			removed = append(removed, v.ID)
		}
	}
	if len(removed) > 0 {
		inUse, err := repo.ValuesInUse(ctx, removed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check attribute value usage")
		}
		if len(inUse) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "attribute values are used by existing SKUs").
				WithDetails(map[string]any{"reason": "value_in_use", "valueIds": inUse})
		}
		if err := repo.DeleteValues(ctx, attr.ID, removed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete attribute values")
		}
	}

	for i, in := range incoming {
		row := newValueRow(attr.ID, in, i)
		if in.ID != nil {
			row.ID = *in.ID
			if err := repo.UpdateValue(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update attribute value")
			}
			continue
		}
		if err := repo.CreateValue(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attribute value")
		}
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, id); err != nil {
			return mapLoadError(err)
		}
		count, err := txRepo.ProductCount(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check attribute usage")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "attribute is used by products").
				WithDetails(map[string]any{"reason": "attribute_in_use", "products": count})
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete attribute")
		}
		return nil
	})
}

func (s *service) AddValue(ctx context.Context, attributeID uuid.UUID, input ValueInput) (*models.AttributeValue, error) {
	if input.Value.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required")
	}
	var row *models.AttributeValue
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, attributeID); err != nil {
			return mapLoadError(err)
		}
		order := 0
		if input.SortOrder != nil {
			order = *input.SortOrder
		} else {
			max, err := txRepo.MaxSortOrder(ctx, attributeID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load value order")
			}
			order = max + 1
		}
		input.SortOrder = &order
		row = newValueRow(attributeID, input, order)
		if err := txRepo.CreateValue(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attribute value")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) DeleteValue(ctx context.Context, attributeID, valueID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		attr, err := txRepo.FindByID(ctx, attributeID)
		if err != nil {
			return mapLoadError(err)
		}
		found := false
		for _, v := range attr.Values {
			if v.ID == valueID {
				found = true
				break
			}
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "attribute value not found")
		}
		inUse, err := txRepo.ValuesInUse(ctx, []uuid.UUID{valueID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check attribute value usage")
		}
		if len(inUse) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "attribute value is used by existing SKUs").
				WithDetails(map[string]any{"reason": "value_in_use", "valueIds": inUse})
		}
		if err := txRepo.DeleteValues(ctx, attributeID, []uuid.UUID{valueID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete attribute value")
		}
		return nil
	})
}

func newValueRow(attributeID uuid.UUID, in ValueInput, position int) *models.AttributeValue {
	order := position
	if in.SortOrder != nil {
		order = *in.SortOrder
	}
	var meta *string
	if in.Meta != nil {
		trimmed := strings.TrimSpace(*in.Meta)
		if trimmed != "" {
			meta = &trimmed
		}
	}
	return &models.AttributeValue{
		AttributeID: attributeID,
		Value:       in.Value,
		Meta:        meta,
		SortOrder:   order,
	}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "attribute not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attribute")
}

func mapWriteError(err error, step string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "attribute code already exists").
			WithDetails(map[string]any{"reason": "duplicate_code"})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
