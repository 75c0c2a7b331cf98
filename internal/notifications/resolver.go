package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audience names who should hear about an event.
type Audience string

const (
	// AudienceQuoteReady is the first user registered under the company.
	AudienceQuoteReady Audience = "quote_ready"
	// AudienceCompanyUsers is every user of the company.
	AudienceCompanyUsers Audience = "company_users"
	// AudienceSalesRep is the sales rep assigned to the company.
	AudienceSalesRep Audience = "sales_rep"
	// AudienceBuyer is the user who placed the order.
	AudienceBuyer Audience = "buyer"
)

// Subject identifies the company and user an event belongs to.
type Subject struct {
	CompanyID *uuid.UUID
	UserID    *uuid.UUID
}

// Recipient is an addressable user.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// RecipientResolver turns an audience into concrete users. An empty result
// tells the caller to use its fallback channel.
type RecipientResolver interface {
	Resolve(ctx context.Context, audience Audience, subject Subject) ([]Recipient, error)
}

type gormResolver struct {
	db *gorm.DB
}

// NewRecipientResolver returns a resolver that reads users from the database.
func NewRecipientResolver(db *gorm.DB) RecipientResolver {
	return &gormResolver{db: db}
}

func (r *gormResolver) Resolve(ctx context.Context, audience Audience, subject Subject) ([]Recipient, error) {
	switch audience {
	case AudienceQuoteReady:
		if subject.CompanyID == nil {
			return nil, nil
		}
		return r.users(ctx, r.db.Where("company_id = ?", *subject.CompanyID).Order("created_at ASC, id ASC").Limit(1))
	case AudienceCompanyUsers:
		if subject.CompanyID == nil {
			return nil, nil
		}
		return r.users(ctx, r.db.Where("company_id = ?", *subject.CompanyID).Order("created_at ASC, id ASC"))
	case AudienceSalesRep:
		if subject.CompanyID == nil {
			return nil, nil
		}
		var company models.Company
		err := r.db.WithContext(ctx).Select("id", "sales_rep_id").Where("id = ?", *subject.CompanyID).Take(&company).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if company.SalesRepID == nil {
			return nil, nil
		}
		return r.users(ctx, r.db.Where("id = ?", *company.SalesRepID))
	case AudienceBuyer:
		if subject.UserID == nil {
			return nil, nil
		}
		return r.users(ctx, r.db.Where("id = ?", *subject.UserID))
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
}

func (r *gormResolver) users(ctx context.Context, query *gorm.DB) ([]Recipient, error) {
	var users []models.User
	if err := query.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, Recipient{UserID: u.ID, Email: u.Email, Name: u.Name})
	}
	return out, nil
}
