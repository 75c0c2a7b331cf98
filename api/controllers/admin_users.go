package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

type staffCreateRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"omitempty,min=8,max=128"`
	Name     string         `json:"name" validate:"required"`
	Role     enums.UserRole `json:"role" validate:"required"`
}

type salesRepRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// AdminCreateStaff creates an admin or sales account. Omitting the password
// returns a generated one in the response.
func AdminCreateStaff(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req staffCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.CreateStaff(r.Context(), users.CreateStaffInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AdminAssignSalesRep links a company to the sales user who receives its
// inquiry notifications.
func AdminAssignSalesRep(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := validators.URLParamUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req salesRepRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		company, err := svc.AssignSalesRep(r.Context(), companyID, req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}
