package attributes

import (
	"context"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), client)
	require.NoError(t, err)
	return svc, conn
}

func text(en string) types.LocalizedText {
	return types.LocalizedText{"en": en}
}

func createColor(t *testing.T, svc Service) *models.Attribute {
	t.Helper()
	attr, err := svc.Create(context.Background(), CreateInput{
		Name: text("Color"),
		Code: " Color ",
		Type: enums.AttributeTypeColor,
		Values: []ValueInput{
			{Value: text("Red")},
			{Value: text("Blue")},
			{Value: text("Green")},
		},
	})
	require.NoError(t, err)
	return attr
}

func TestCreateAttribute(t *testing.T) {
	svc, _ := newTestService(t)
	attr := createColor(t, svc)

	assert.Equal(t, "color", attr.Code)
	require.Len(t, attr.Values, 3)
	assert.Equal(t, "Red", attr.Values[0].Value.Get("en"))
	assert.Equal(t, 2, attr.Values[2].SortOrder)

	_, err := svc.Create(context.Background(), CreateInput{Name: text("Colour"), Code: "color", Type: enums.AttributeTypeColor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCreateAttributeValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{Name: text("Size"), Code: "size", Type: "weird"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), CreateInput{Name: types.LocalizedText{}, Code: "size", Type: enums.AttributeTypeSize})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateReconcilesValues(t *testing.T) {
	svc, _ := newTestService(t)
	attr := createColor(t, svc)
	red, blue := attr.Values[0], attr.Values[1]

	renamed := text("Crimson")
	values := []ValueInput{
		{ID: &red.ID, Value: renamed},
		{ID: &blue.ID, Value: blue.Value},
		{Value: text("Black")},
	}
	updated, err := svc.Update(context.Background(), attr.ID, UpdateInput{Values: &values})
	require.NoError(t, err)

	require.Len(t, updated.Values, 3)
	assert.Equal(t, red.ID, updated.Values[0].ID, "ids survive reconcile")
	assert.Equal(t, "Crimson", updated.Values[0].Value.Get("en"))
	assert.Equal(t, blue.ID, updated.Values[1].ID)
	assert.Equal(t, "Black", updated.Values[2].Value.Get("en"))
}

func TestUpdateRefusesDeletingUsedValue(t *testing.T) {
	svc, conn := newTestService(t)
	attr := createColor(t, svc)
	green := attr.Values[2]

	product := models.Product{Code: "TS", Title: text("Tee"), BasePrice: decimal.NewFromInt(10), Status: enums.ProductStatusActive}
	require.NoError(t, conn.Create(&product).Error)
	sku := models.SKU{
		ProductID:         product.ID,
		SKUCode:           "TS-GRE",
		CombinationKey:    green.ID.String(),
		Price:             decimal.NewFromInt(10),
		MOQ:               1,
		AttributeValueIDs: types.UUIDList{green.ID},
	}
	require.NoError(t, conn.Create(&sku).Error)

	values := []ValueInput{{ID: &attr.Values[0].ID, Value: attr.Values[0].Value}}
	_, err := svc.Update(context.Background(), attr.ID, UpdateInput{Values: &values})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{green.ID}, details["valueIds"])

	reloaded, err := svc.Get(context.Background(), attr.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Values, 3, "failed reconcile rolls back")

	err = svc.DeleteValue(context.Background(), attr.ID, green.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, conn.Delete(&sku).Error)
	require.NoError(t, svc.DeleteValue(context.Background(), attr.ID, green.ID), "soft-deleted SKUs do not block")
}

func TestAddAndDeleteValue(t *testing.T) {
	svc, _ := newTestService(t)
	attr := createColor(t, svc)

	added, err := svc.AddValue(context.Background(), attr.ID, ValueInput{Value: text("White")})
	require.NoError(t, err)
	assert.Equal(t, 3, added.SortOrder)

	err = svc.DeleteValue(context.Background(), attr.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.DeleteValue(context.Background(), attr.ID, added.ID))

	_, err = svc.AddValue(context.Background(), uuid.New(), ValueInput{Value: text("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAttribute(t *testing.T) {
	svc, conn := newTestService(t)
	attr := createColor(t, svc)

	product := models.Product{Code: "TS", Title: text("Tee"), BasePrice: decimal.NewFromInt(10), Status: enums.ProductStatusActive}
	require.NoError(t, conn.Create(&product).Error)
	require.NoError(t, conn.Create(&models.ProductAttribute{ProductID: product.ID, AttributeID: attr.ID}).Error)

	err := svc.Delete(context.Background(), attr.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, conn.Where("product_id = ?", product.ID).Delete(&models.ProductAttribute{}).Error)
	require.NoError(t, svc.Delete(context.Background(), attr.ID))

	_, err = svc.Get(context.Background(), attr.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var values int64
	require.NoError(t, conn.Model(&models.AttributeValue{}).Where("attribute_id = ?", attr.ID).Count(&values).Error)
	assert.Zero(t, values)
}
