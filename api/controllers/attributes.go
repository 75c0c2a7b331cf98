package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/attributes"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

type attributeValueRequest struct {
	ID        *uuid.UUID          `json:"id,omitempty"`
	Value     types.LocalizedText `json:"value" validate:"required"`
	Meta      *string             `json:"meta,omitempty"`
	SortOrder *int                `json:"sortOrder,omitempty" validate:"omitempty,min=0"`
}

func (v attributeValueRequest) input() attributes.ValueInput {
	return attributes.ValueInput{ID: v.ID, Value: v.Value, Meta: v.Meta, SortOrder: v.SortOrder}
}

type attributeCreateRequest struct {
	Name   types.LocalizedText     `json:"name" validate:"required"`
	Code   string                  `json:"code" validate:"required,max=64"`
	Type   enums.AttributeType     `json:"type" validate:"required"`
	Values []attributeValueRequest `json:"values" validate:"dive"`
}

type attributeUpdateRequest struct {
	Name   *types.LocalizedText     `json:"name,omitempty"`
	Code   *string                  `json:"code,omitempty" validate:"omitempty,max=64"`
	Type   *enums.AttributeType     `json:"type,omitempty"`
	Values *[]attributeValueRequest `json:"values,omitempty" validate:"omitempty,dive"`
}

func valueInputs(values []attributeValueRequest) []attributes.ValueInput {
	out := make([]attributes.ValueInput, 0, len(values))
	for _, v := range values {
		out = append(out, v.input())
	}
	return out
}

func AttributeList(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AttributeGet(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attr, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attr)
	}
}

func AttributeCreate(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attributeCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attr, err := svc.Create(r.Context(), attributes.CreateInput{
			Name:   req.Name,
			Code:   req.Code,
			Type:   req.Type,
			Values: valueInputs(req.Values),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, attr)
	}
}

// AttributeUpdate patches an attribute. A values array reconciles the
// stored values: ids are kept, new rows are added, missing ones removed.
func AttributeUpdate(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req attributeUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := attributes.UpdateInput{Name: req.Name, Code: req.Code, Type: req.Type}
		if req.Values != nil {
			values := valueInputs(*req.Values)
			input.Values = &values
		}
		attr, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attr)
	}
}

func AttributeDelete(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
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

func AttributeAddValue(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req attributeValueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		value, err := svc.AddValue(r.Context(), id, req.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, value)
	}
}

func AttributeDeleteValue(svc attributes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		valueID, err := validators.URLParamUUID(r, "valueId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteValue(r.Context(), id, valueID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": valueID, "deleted": true})
	}
}
