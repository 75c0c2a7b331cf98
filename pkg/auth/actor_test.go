package auth

import (
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/google/uuid"
)

func TestActorCompanyAccess(t *testing.T) {
	mine, other := uuid.New(), uuid.New()
	buyer := &Actor{UserID: uuid.New(), CompanyID: &mine, Role: enums.UserRoleBuyer}
	sales := &Actor{UserID: uuid.New(), Role: enums.UserRoleSales}
	var nobody *Actor

	if !buyer.CanAccessCompany(&mine) || buyer.CanAccessCompany(&other) || buyer.CanAccessCompany(nil) {
		t.Fatalf("buyer should only reach their own company")
	}
	if !sales.CanAccessCompany(&other) || !sales.CanAccessCompany(nil) {
		t.Fatalf("staff should reach every company")
	}
	if nobody.CanAccessCompany(&mine) {
		t.Fatalf("nil actor must not reach any company")
	}

	scope, err := buyer.CompanyScope()
	if err != nil || scope == nil || *scope != mine {
		t.Fatalf("expected buyer scope %s, got %v (%v)", mine, scope, err)
	}
	if scope, err := sales.CompanyScope(); err != nil || scope != nil {
		t.Fatalf("expected unrestricted staff scope, got %v (%v)", scope, err)
	}
	if _, err := nobody.CompanyScope(); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	orphan := &Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}
	if _, err := orphan.CompanyScope(); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
