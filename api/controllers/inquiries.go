package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const maxImportBytes = 10 << 20

type inquiryItemRequest struct {
	ID          *uuid.UUID       `json:"id,omitempty"`
	ProductID   uuid.UUID        `json:"productId" validate:"required"`
	SKUID       *uuid.UUID       `json:"skuId,omitempty"`
	SKUSpecs    string           `json:"skuSpecs"`
	Quantity    int              `json:"quantity" validate:"min=1"`
	TargetPrice *decimal.Decimal `json:"targetPrice,omitempty" validate:"omitempty,gte=0"`
	QuotedPrice *decimal.Decimal `json:"quotedPrice,omitempty" validate:"omitempty,gte=0"`
}

type inquiryCreateRequest struct {
	ContactName  string               `json:"contactName" validate:"required,max=128"`
	ContactEmail string               `json:"contactEmail" validate:"required,email"`
	ContactPhone *string              `json:"contactPhone,omitempty"`
	CompanyName  *string              `json:"companyName,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Currency     string               `json:"currency" validate:"omitempty,currency"`
	Items        []inquiryItemRequest `json:"items" validate:"required,min=1,dive"`
}

type inquiryUpdateRequest struct {
	ContactName  *string               `json:"contactName,omitempty"`
	ContactEmail *string               `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone *string               `json:"contactPhone,omitempty"`
	CompanyName  *string               `json:"companyName,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
	Status       *enums.InquiryStatus  `json:"status,omitempty"`
	Currency     *string               `json:"currency,omitempty" validate:"omitempty,currency"`
	Items        *[]inquiryItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

type inquiryMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

func inquiryItems(reqs []inquiryItemRequest) []inquiries.ItemInput {
	out := make([]inquiries.ItemInput, 0, len(reqs))
	for _, it := range reqs {
		out = append(out, inquiries.ItemInput{
			ID:          it.ID,
			ProductID:   it.ProductID,
			SKUID:       it.SKUID,
			SKUSpecs:    it.SKUSpecs,
			Quantity:    it.Quantity,
			TargetPrice: it.TargetPrice,
			QuotedPrice: it.QuotedPrice,
		})
	}
	return out
}

// InquiryCreate accepts an RFQ from a signed-in buyer or an anonymous
// visitor.
func InquiryCreate(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inquiryCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiry, err := svc.Create(r.Context(), inquiries.CreateInput{
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			CompanyName:  req.CompanyName,
			Notes:        req.Notes,
			Currency:     req.Currency,
			Items:        inquiryItems(req.Items),
		}, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inquiry)
	}
}

func InquiryList(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := inquiries.ListFilter{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 128),
			Page:   page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseInquiryStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		resp, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func InquiryGet(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiry, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}

// InquiryUpdate edits an inquiry. Staff quote prices and move the status;
// buyers may only edit a pending inquiry or close it.
func InquiryUpdate(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req inquiryUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := inquiries.UpdateInput{
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			CompanyName:  req.CompanyName,
			Notes:        req.Notes,
			Status:       req.Status,
			Currency:     req.Currency,
		}
		if req.Items != nil {
			items := inquiryItems(*req.Items)
			input.Items = &items
		}
		inquiry, err := svc.Update(r.Context(), id, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}

func InquiryAddMessage(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req inquiryMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.AddMessage(r.Context(), id, req.Content, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

func InquiryListMessages(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msgs, err := svc.ListMessages(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msgs)
	}
}

// InquiryDocument renders the quotation in the negotiated locale.
func InquiryDocument(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.Document(r.Context(), id, actor, middleware.LocaleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

// InquiryImport creates an inquiry from an uploaded .xlsx sheet sent as the
// multipart field "file". Contact fields may ride along as form values.
func InquiryImport(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "only .xlsx files are supported"))
			return
		}

		meta := inquiries.ImportMeta{
			ContactName:  strings.TrimSpace(r.FormValue("contactName")),
			ContactEmail: strings.TrimSpace(r.FormValue("contactEmail")),
			ContactPhone: optionalForm(r, "contactPhone"),
			CompanyName:  optionalForm(r, "companyName"),
			Notes:        optionalForm(r, "notes"),
			Currency:     strings.TrimSpace(r.FormValue("currency")),
		}
		ctx := logg.WithField(r.Context(), "import_file", header.Filename)
		inquiry, err := svc.ImportFromExcel(ctx, file, meta, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inquiry)
	}
}

func optionalForm(r *http.Request, key string) *string {
	value := strings.TrimSpace(r.FormValue(key))
	if value == "" {
		return nil
	}
	return &value
}
