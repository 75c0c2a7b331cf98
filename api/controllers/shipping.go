package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/shipping"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

type shippingCreateRequest struct {
	OrderID    uuid.UUID  `json:"orderId" validate:"required"`
	TrackingNo string     `json:"trackingNo" validate:"required,max=128"`
	Carrier    string     `json:"carrier" validate:"required,max=64"`
	ShippedAt  *time.Time `json:"shippedAt,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// ShippingCreate records the shipment and moves the order to SHIPPED.
func ShippingCreate(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req shippingCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Create(r.Context(), shipping.CreateInput{
			OrderID:    req.OrderID,
			TrackingNo: req.TrackingNo,
			Carrier:    req.Carrier,
			ShippedAt:  req.ShippedAt,
			Notes:      req.Notes,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func OrderShipping(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
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
		record, err := svc.GetByOrder(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
