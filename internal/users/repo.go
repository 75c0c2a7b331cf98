package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

// Repository stores accounts and the buyer companies they belong to.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to tx; a nil tx keeps the current handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an address already passed through NormalizeEmail.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](ctx, r.db, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return first[models.User](ctx, r.db, "id = ?", id)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setColumn(ctx, &models.User{}, id, "last_login_at", at)
}

// UpdatePasswordHash stores a rehash made after the argon2 parameters changed.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.setColumn(ctx, &models.User{}, id, "password_hash", hash)
}

func (r *Repository) CreateCompany(ctx context.Context, dto CreateCompanyDTO) (*models.Company, error) {
	company := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (r *Repository) FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return first[models.Company](ctx, r.db, "id = ?", id)
}

func (r *Repository) SetSalesRep(ctx context.Context, companyID, userID uuid.UUID) error {
	return r.setColumn(ctx, &models.Company{}, companyID, "sales_rep_id", userID)
}

// setColumn writes one column without touching updated_at hooks.
func (r *Repository) setColumn(ctx context.Context, model any, id uuid.UUID, column string, value any) error {
	return r.db.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumn(column, value).Error
}

// first returns gorm.ErrRecordNotFound when nothing matches.
func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	if err := db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
