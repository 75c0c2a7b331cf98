package auth

import (
	"time"

	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest onboards a buyer together with their company.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	Name        string  `json:"name" validate:"required"`
	CompanyName string  `json:"companyName" validate:"required"`
	Country     *string `json:"country,omitempty"`
}

// LoginResponse contains the access token and the authenticated user.
type LoginResponse struct {
	AccessToken string         `json:"accessToken"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	User        *users.UserDTO `json:"user"`
}

// MeResponse describes the caller and, for buyers, their company.
type MeResponse struct {
	User    *users.UserDTO  `json:"user"`
	Company *models.Company `json:"company,omitempty"`
}
