package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
	"github.com/google/uuid"
)

// CreateStaffInput is the admin payload for a new admin or sales account.
// An empty Password issues a temporary one, returned once on the DTO.
type CreateStaffInput struct {
	Email    string
	Password string
	Name     string
	Role     enums.UserRole
}

// Service covers the admin-side account operations.
type Service interface {
	CreateStaff(ctx context.Context, input CreateStaffInput) (*UserDTO, error)
	AssignSalesRep(ctx context.Context, companyID, userID uuid.UUID) (*models.Company, error)
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
}

// NewService builds the admin account service.
func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) CreateStaff(ctx context.Context, input CreateStaffInput) (*UserDTO, error) {
	if !input.Role.IsStaff() {
		return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "role must be admin or sales, got %q", input.Role)
	}
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	password, temporary := input.Password, ""
	if password == "" {
		generated, err := security.NewTemporaryPassword(security.TemporaryPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password, temporary = generated, generated
	}
	hash, err := HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{Email: email, PasswordHash: hash, Name: name, Role: input.Role})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	dto := FromModel(user)
	dto.TemporaryPassword = temporary
	return dto, nil
}

func (s *service) AssignSalesRep(ctx context.Context, companyID, userID uuid.UUID) (*models.Company, error) {
	if _, err := s.repo.FindCompany(ctx, companyID); err != nil {
		return nil, db.NotFoundOr(err, "company not found", "load company")
	}
	rep, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, db.NotFoundOr(err, "user not found", "load user")
	}
	if !rep.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sales rep must be a staff user")
	}
	if err := s.repo.SetSalesRep(ctx, companyID, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign sales rep")
	}
	company, err := s.repo.FindCompany(ctx, companyID)
	if err != nil {
		return nil, db.NotFoundOr(err, "company not found", "load company")
	}
	return company, nil
}

// NormalizeEmail trims and lower-cases an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes a new password, mapping weak input to a validation error.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	hash, err := security.HashPassword(password, cfg)
	if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

