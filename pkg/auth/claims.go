package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Role      enums.UserRole
	Email     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID      `json:"uid"`
	CompanyID *uuid.UUID     `json:"cid,omitempty"`
	Role      enums.UserRole `json:"role"`
	Email     string         `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validate checks the application claims. The jwt parser calls it after the
// registered claims pass.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return fmt.Errorf("user id is required")
	case c.Subject != c.UserID.String():
		return fmt.Errorf("subject %q does not match user id", c.Subject)
	case !c.Role.IsValid():
		return fmt.Errorf("invalid user role %q", c.Role)
	}
	return nil
}

var _ jwt.ClaimsValidator = AccessTokenClaims{}
