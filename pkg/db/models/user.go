package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// User is a login identity: staff (admin, sales) or a buyer tied to a company.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Role         enums.UserRole `gorm:"column:role;not null" json:"role"`
	CompanyID    *uuid.UUID     `gorm:"column:company_id;type:uuid;index" json:"companyId,omitempty"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Company is a buyer organisation.
type Company struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	ContactEmail string     `gorm:"column:contact_email;not null" json:"contactEmail"`
	Country      *string    `gorm:"column:country" json:"country,omitempty"`
	SalesRepID   *uuid.UUID `gorm:"column:sales_rep_id;type:uuid" json:"salesRepId,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
