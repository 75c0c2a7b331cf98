package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// UserDTO is an account as the API returns it; the password hash never leaves
// the repository.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	CompanyID   *uuid.UUID     `json:"companyId,omitempty"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	// Only set on the response that created a staff account without a password.
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

// CreateUserDTO is a new account whose password is already hashed.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.UserRole
	CompanyID    *uuid.UUID
}

// CreateCompanyDTO is a buyer company opened during registration.
type CreateCompanyDTO struct {
	Name         string
	ContactEmail string
	Country      *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CompanyID != nil {
		id := *u.CompanyID
		dto.CompanyID = &id
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		dto.LastLoginAt = &at
	}
	return dto
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Role:         c.Role,
		CompanyID:    c.CompanyID,
	}
}

func (c CreateCompanyDTO) ToModel() *models.Company {
	return &models.Company{Name: c.Name, ContactEmail: c.ContactEmail, Country: c.Country}
}
