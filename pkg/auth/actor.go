package auth

import (
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/google/uuid"
)

// Actor is the authenticated caller handed from the HTTP layer to services.
type Actor struct {
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Role      enums.UserRole
	Email     string
}

// ActorFromClaims builds an Actor from parsed token claims.
func ActorFromClaims(claims *AccessTokenClaims) *Actor {
	if claims == nil {
		return nil
	}
	return &Actor{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Role:      claims.Role,
		Email:     claims.Email,
	}
}

// IsStaff reports whether the actor is an admin or sales user.
func (a *Actor) IsStaff() bool {
	return a != nil && a.Role.IsStaff()
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == enums.UserRoleAdmin
}

// CanAccessCompany reports whether the actor may read records owned by companyID.
// Staff see every company; buyers only their own.
func (a *Actor) CanAccessCompany(companyID *uuid.UUID) bool {
	if a == nil {
		return false
	}
	if a.IsStaff() {
		return true
	}
	if a.CompanyID == nil || companyID == nil {
		return false
	}
	return *a.CompanyID == *companyID
}

// CompanyScope returns the company a listing must be limited to. A nil
// scope with a nil error means the actor may see every company.
func (a *Actor) CompanyScope() (*uuid.UUID, error) {
	if a == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if a.IsStaff() {
		return nil, nil
	}
	if a.CompanyID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not linked to a company")
	}
	return a.CompanyID, nil
}
