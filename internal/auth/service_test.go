package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	user      *models.User
	company   *models.Company
	lastLogin time.Time
	rehashed  string
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	if s.company != nil && s.company.ID == id {
		return s.company, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.rehashed = hash
	return nil
}

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "tradedesk",
	ExpirationMinutes: 30,
}

func TestServiceLoginBuyer(t *testing.T) {
	companyID := uuid.New()
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, "buyer-secret"),
		Name:         "Buyer",
		Role:         enums.UserRoleBuyer,
		CompanyID:    &companyID,
	}}
	fixed := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Buyer@Example.com", Password: "buyer-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !repo.lastLogin.Equal(fixed) {
		t.Fatalf("expected last login %v, got %v", fixed, repo.lastLogin)
	}
	if !resp.ExpiresAt.Equal(fixed.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", resp.ExpiresAt)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.UserRoleBuyer {
		t.Fatalf("expected buyer role claim, got %s", claims.Role)
	}
	if claims.CompanyID == nil || *claims.CompanyID != companyID {
		t.Fatalf("expected company claim %s, got %v", companyID, claims.CompanyID)
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: mustHashPassword(t, "admin-secret"),
		Role:         enums.UserRoleAdmin,
	}}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	for _, req := range []LoginRequest{
		{Email: "admin@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "admin-secret"},
		{Email: "  ", Password: "admin-secret"},
	} {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
}

func TestServiceMe(t *testing.T) {
	companyID := uuid.New()
	user := &models.User{ID: uuid.New(), Email: "buyer@example.com", Role: enums.UserRoleBuyer, CompanyID: &companyID}
	repo := &stubUserRepo{user: user, company: &models.Company{ID: companyID, Name: "Acme"}}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Me(context.Background(), &pkgAuth.Actor{UserID: user.ID, CompanyID: &companyID, Role: enums.UserRoleBuyer})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if resp.Company == nil || resp.Company.Name != "Acme" {
		t.Fatalf("expected company in response, got %+v", resp.Company)
	}

	if _, err := svc.Me(context.Background(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized without actor, got %v", err)
	}
	if _, err := svc.Me(context.Background(), &pkgAuth.Actor{UserID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestServiceLoginRehashesOutdatedHash(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "rep@example.com",
		PasswordHash: mustHashPassword(t, "sales-secret"),
		Name:         "Rep",
		Role:         enums.UserRoleSales,
	}}
	stronger := config.PasswordConfig{ArgonTime: 2}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, PasswordConfig: stronger})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "rep@example.com", Password: "sales-secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.rehashed == "" || security.NeedsRehash(repo.rehashed, stronger) {
		t.Fatalf("expected hash upgraded to current params, got %q", repo.rehashed)
	}

	repo.rehashed = ""
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "rep@example.com", Password: "sales-secret"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if repo.rehashed != "" {
		t.Fatal("current hash must not be rewritten")
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}
