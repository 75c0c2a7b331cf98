package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

type productAttributeRequest struct {
	AttributeID uuid.UUID `json:"attributeId" validate:"required"`
	SortOrder   *int      `json:"sortOrder,omitempty"`
}

type skuRequest struct {
	ID                *uuid.UUID       `json:"id,omitempty"`
	SKUCode           string           `json:"skuCode" validate:"required,max=64"`
	AttributeValueIDs []uuid.UUID      `json:"attributeValueIds"`
	Price             *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock             int              `json:"stock" validate:"min=0"`
	MOQ               int              `json:"moq" validate:"min=0"`
	Image             *string          `json:"image,omitempty"`
	TierPrices        types.TierPrices `json:"tierPrices" validate:"dive"`
}

type productCreateRequest struct {
	Code        string                    `json:"code" validate:"required,max=64"`
	Title       types.LocalizedText       `json:"title" validate:"required"`
	Description types.LocalizedText       `json:"description"`
	BasePrice   decimal.Decimal           `json:"basePrice" validate:"gte=0"`
	CategoryID  *uuid.UUID                `json:"categoryId,omitempty"`
	Images      []string                  `json:"images"`
	Tags        []string                  `json:"tags"`
	Status      enums.ProductStatus       `json:"status"`
	Attributes  []productAttributeRequest `json:"attributes" validate:"dive"`
	SKUs        []skuRequest              `json:"skus" validate:"dive"`
}

type productUpdateRequest struct {
	Code          *string                    `json:"code,omitempty" validate:"omitempty,max=64"`
	Title         *types.LocalizedText       `json:"title,omitempty"`
	Description   *types.LocalizedText       `json:"description,omitempty"`
	BasePrice     *decimal.Decimal           `json:"basePrice,omitempty" validate:"omitempty,gte=0"`
	CategoryID    *uuid.UUID                 `json:"categoryId,omitempty"`
	ClearCategory bool                       `json:"clearCategory,omitempty"`
	Images        *[]string                  `json:"images,omitempty"`
	Tags          *[]string                  `json:"tags,omitempty"`
	Status        *enums.ProductStatus       `json:"status,omitempty"`
	Attributes    *[]productAttributeRequest `json:"attributes,omitempty" validate:"omitempty,dive"`
	SKUs          *[]skuRequest              `json:"skus,omitempty" validate:"omitempty,dive"`
}

type matrixSelectionRequest struct {
	AttributeID uuid.UUID   `json:"attributeId" validate:"required"`
	ValueIDs    []uuid.UUID `json:"valueIds" validate:"required,min=1"`
}

type matrixRequest struct {
	ProductID  *uuid.UUID               `json:"productId,omitempty"`
	Prefix     string                   `json:"prefix"`
	BasePrice  *decimal.Decimal         `json:"basePrice,omitempty" validate:"omitempty,gte=0"`
	Selections []matrixSelectionRequest `json:"selections" validate:"dive"`
	Existing   []product.SKURow         `json:"existing"`
}

func attributeInputs(reqs []productAttributeRequest) []product.ProductAttributeInput {
	out := make([]product.ProductAttributeInput, 0, len(reqs))
	for _, a := range reqs {
		out = append(out, product.ProductAttributeInput{AttributeID: a.AttributeID, SortOrder: a.SortOrder})
	}
	return out
}

func skuInputs(reqs []skuRequest) []product.SKUInput {
	out := make([]product.SKUInput, 0, len(reqs))
	for _, s := range reqs {
		out = append(out, product.SKUInput{
			ID:                s.ID,
			SKUCode:           s.SKUCode,
			AttributeValueIDs: s.AttributeValueIDs,
			Price:             s.Price,
			Stock:             s.Stock,
			MOQ:               s.MOQ,
			Image:             s.Image,
			TierPrices:        s.TierPrices,
		})
	}
	return out
}

// ProductList browses the catalog. Anonymous callers and buyers only see
// active products; staff may filter by any status.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !middleware.ActorFromContext(r.Context()).IsStaff() {
			active := enums.ProductStatusActive
			filter.Status = &active
		}
		resp, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseProductFilter(r *http.Request) (product.ListFilter, error) {
	q := r.URL.Query()
	page, err := validators.ParsePage(r)
	if err != nil {
		return product.ListFilter{}, err
	}
	filter := product.ListFilter{
		Search: validators.SanitizeString(q.Get("search"), 128),
		Tag:    strings.TrimSpace(q.Get("tag")),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Page:   page,
	}
	if filter.CategoryID, err = validators.QueryUUID(r, "categoryId"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseProductStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return filter, pkgerrors.New(pkgerrors.CodeValidation, "ids must be comma separated uuids")
			}
			filter.IDs = append(filter.IDs, id)
		}
	}
	// attributes={"<attributeId>":["<valueId>",...]}
	if raw := strings.TrimSpace(q.Get("attributes")); raw != "" {
		var selected map[uuid.UUID][]uuid.UUID
		if err := json.Unmarshal([]byte(raw), &selected); err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "attributes must be a JSON map of attribute id to value ids")
		}
		for attrID, valueIDs := range selected {
			if len(valueIDs) == 0 {
				continue
			}
			if filter.Attributes == nil {
				filter.Attributes = map[uuid.UUID][]uuid.UUID{}
			}
			filter.Attributes[attrID] = append(filter.Attributes[attrID], valueIDs...)
		}
	}
	// attr=<attributeId>:<valueId>[|<valueId>] may repeat.
	for _, raw := range q["attr"] {
		attrPart, valuesPart, ok := strings.Cut(raw, ":")
		if !ok {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "attr must be attributeId:valueId")
		}
		attrID, err := uuid.Parse(strings.TrimSpace(attrPart))
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid attribute id in attr")
		}
		if filter.Attributes == nil {
			filter.Attributes = map[uuid.UUID][]uuid.UUID{}
		}
		for _, v := range strings.Split(valuesPart, "|") {
			valueID, err := uuid.Parse(strings.TrimSpace(v))
			if err != nil {
				return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid value id in attr")
			}
			filter.Attributes[attrID] = append(filter.Attributes[attrID], valueID)
		}
	}
	return filter, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a decimal").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if item.Status != enums.ProductStatusActive && !middleware.ActorFromContext(r.Context()).IsStaff() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), product.CreateInput{
			Code:        req.Code,
			Title:       req.Title,
			Description: req.Description,
			BasePrice:   req.BasePrice,
			CategoryID:  req.CategoryID,
			Images:      req.Images,
			Tags:        req.Tags,
			Status:      req.Status,
			Attributes:  attributeInputs(req.Attributes),
			SKUs:        skuInputs(req.SKUs),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req productUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := product.UpdateInput{
			Code:          req.Code,
			Title:         req.Title,
			Description:   req.Description,
			BasePrice:     req.BasePrice,
			CategoryID:    req.CategoryID,
			ClearCategory: req.ClearCategory,
			Images:        req.Images,
			Tags:          req.Tags,
			Status:        req.Status,
		}
		if req.Attributes != nil {
			attrs := attributeInputs(*req.Attributes)
			input.Attributes = &attrs
		}
		if req.SKUs != nil {
			skus := skuInputs(*req.SKUs)
			input.SKUs = &skus
		}
		item, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// ProductSKUMatrix previews the SKU rows for a set of attribute selections.
// Nothing is persisted; the admin panel saves the edited rows through
// ProductUpdate.
func ProductSKUMatrix(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matrixRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		selections := make([]product.MatrixSelectionInput, 0, len(req.Selections))
		for _, s := range req.Selections {
			selections = append(selections, product.MatrixSelectionInput{AttributeID: s.AttributeID, ValueIDs: s.ValueIDs})
		}
		rows, err := svc.GenerateMatrix(r.Context(), product.MatrixInput{
			ProductID:  req.ProductID,
			Prefix:     req.Prefix,
			BasePrice:  req.BasePrice,
			Selections: selections,
			Existing:   req.Existing,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rows": rows, "count": len(rows)})
	}
}
