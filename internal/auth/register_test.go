package auth

import (
	"context"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesCompanyAndBuyer(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := users.NewRepository(conn)
	svc, err := NewRegisterService(RegisterServiceParams{DB: client, Users: repo, PasswordConfig: config.PasswordConfig{}, JWTConfig: testJWT})
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:       "Owner@Acme.test",
		Password:    "owner-secret",
		Name:        "Owner",
		CompanyName: "Acme Trading",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, enums.UserRoleBuyer, resp.User.Role)
	require.NotNil(t, resp.User.CompanyID)

	var company models.Company
	require.NoError(t, conn.First(&company, "id = ?", *resp.User.CompanyID).Error)
	assert.Equal(t, "Acme Trading", company.Name)
	assert.Equal(t, "owner@acme.test", company.ContactEmail)

	_, err = svc.Register(ctx, RegisterRequest{Email: "owner@acme.test", Password: "other-secret", Name: "Dup", CompanyName: "Dup Co"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var companies int64
	require.NoError(t, conn.Model(&models.Company{}).Count(&companies).Error)
	assert.EqualValues(t, 1, companies)
}

func TestRegisterValidation(t *testing.T) {
	client, conn := dbtest.Client(t)
	svc, err := NewRegisterService(RegisterServiceParams{DB: client, Users: users.NewRepository(conn), JWTConfig: testJWT})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "a@b.test", Password: "short", Name: "A", CompanyName: "B"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "a@b.test", Password: "long-enough", Name: " ", CompanyName: "B"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
