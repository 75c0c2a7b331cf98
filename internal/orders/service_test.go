package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications/notifytest"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
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

var fixedNow = time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC)

type orderFixture struct {
	svc      Service
	conn     *gorm.DB
	recorder *notifytest.Recorder
	company  models.Company
	buyer    *pkgAuth.Actor
	admin    *pkgAuth.Actor
	stranger *pkgAuth.Actor
	product  models.Product
	tee      models.SKU
	bulk     models.SKU
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	recorder := &notifytest.Recorder{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         client,
		Catalog:    product.NewRepository(conn),
		Inquiries:  inquiries.NewRepository(conn),
		Notifier:   recorder,
		Resolver:   notifications.NewRecipientResolver(conn),
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	f := &orderFixture{svc: svc, conn: conn, recorder: recorder}
	f.company = models.Company{Name: "Acme", ContactEmail: "ops@acme.test"}
	require.NoError(t, conn.Create(&f.company).Error)
	buyer := models.User{Email: "buyer@acme.test", PasswordHash: "x", Name: "Buyer", Role: enums.UserRoleBuyer, CompanyID: &f.company.ID}
	admin := models.User{Email: "admin@tradedesk.test", PasswordHash: "x", Name: "Admin", Role: enums.UserRoleAdmin}
	require.NoError(t, conn.Create(&buyer).Error)
	require.NoError(t, conn.Create(&admin).Error)
	f.buyer = &pkgAuth.Actor{UserID: buyer.ID, CompanyID: &f.company.ID, Role: enums.UserRoleBuyer, Email: buyer.Email}
	f.admin = &pkgAuth.Actor{UserID: admin.ID, Role: enums.UserRoleAdmin, Email: admin.Email}
	other := uuid.New()
	f.stranger = &pkgAuth.Actor{UserID: uuid.New(), CompanyID: &other, Role: enums.UserRoleBuyer, Email: "x@other.test"}

	f.product = models.Product{Code: "TEE", Title: types.LocalizedText{"en": "Cotton Tee", "zh": "棉T恤"}, BasePrice: decimal.NewFromInt(100), Status: enums.ProductStatusActive}
	require.NoError(t, conn.Create(&f.product).Error)
	f.tee = models.SKU{ProductID: f.product.ID, SKUCode: "TEE-RED-SMA", Price: decimal.NewFromInt(100), Stock: 50, MOQ: 5}
	f.bulk = models.SKU{
		ProductID: f.product.ID, SKUCode: "TEE-BLU-LAR", Price: decimal.NewFromInt(100), Stock: 500, MOQ: 1,
		TierPrices: types.TierPrices{{MinQty: 20, Price: decimal.NewFromInt(90)}, {MinQty: 50, Price: decimal.NewFromInt(80)}},
	}
	require.NoError(t, conn.Create(&f.tee).Error)
	require.NoError(t, conn.Create(&f.bulk).Error)
	return f
}

func (f *orderFixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var sku models.SKU
	require.NoError(t, f.conn.Unscoped().Where("id = ?", id).Take(&sku).Error)
	return sku.Stock
}

func (f *orderFixture) place(t *testing.T, qty int) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{Items: []ItemInput{{SKUID: f.tee.ID, Quantity: qty}}}, f.buyer)
	require.NoError(t, err)
	return order
}

func reason(t *testing.T, err error) string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	details, _ := typed.Details().(map[string]any)
	r, _ := details["reason"].(string)
	return r
}

func TestCreateChecksMOQAndStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 2}}}, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
	assert.Equal(t, "moq_violation", reason(t, err))

	_, err = f.svc.Create(ctx, CreateInput{Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 100}}}, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
	assert.Equal(t, "insufficient_stock", reason(t, err))
	assert.Equal(t, 50, f.stock(t, f.tee.ID))

	order := f.place(t, 10)
	assert.Equal(t, 40, f.stock(t, f.tee.ID))
	assert.Equal(t, "ORD-2026-1", order.OrderNo)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, f.company.ID, order.CompanyID)
	assert.Equal(t, "USD", order.Currency)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "TEE-RED-SMA", order.Items[0].SKUCode)
	assert.Equal(t, "Cotton Tee", order.Items[0].ProductTitle)
	assert.True(t, decimal.NewFromInt(1000).Equal(order.TotalAmount))

	second := f.place(t, 5)
	assert.Equal(t, "ORD-2026-2", second.OrderNo)
}

func TestCreateRollsBackEarlierLines(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{Items: []ItemInput{
		{SKUID: f.bulk.ID, Quantity: 30},
		{SKUID: f.tee.ID, Quantity: 60},
	}}, f.buyer)
	require.Error(t, err)
	assert.Equal(t, "insufficient_stock", reason(t, err))
	assert.Equal(t, 500, f.stock(t, f.bulk.ID))

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.recorder.Calls())
}

func TestCreateAppliesTierPricing(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.svc.Create(context.Background(), CreateInput{Items: []ItemInput{
		{SKUID: f.bulk.ID, Quantity: 10},
	}}, f.buyer)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(order.Items[0].UnitPrice))

	order, err = f.svc.Create(context.Background(), CreateInput{Items: []ItemInput{
		{SKUID: f.bulk.ID, Quantity: 25},
	}}, f.buyer)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90).Equal(order.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(2250).Equal(order.TotalAmount))

	order, err = f.svc.Create(context.Background(), CreateInput{Items: []ItemInput{
		{SKUID: f.bulk.ID, Quantity: 60},
	}}, f.buyer)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(order.Items[0].UnitPrice))
}

func TestCreateValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{}, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	dup := []ItemInput{{SKUID: f.tee.ID, Quantity: 10}, {SKUID: f.tee.ID, Quantity: 5}}
	_, err = f.svc.Create(ctx, CreateInput{Items: dup}, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{Items: []ItemInput{{SKUID: uuid.New(), Quantity: 10}}}, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, CreateInput{Currency: "EURO", Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "staff must name a company")

	companyID := f.company.ID
	order, err := f.svc.Create(ctx, CreateInput{CompanyID: &companyID, Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, f.company.ID, order.CompanyID)
}

func TestCreateFromInquiryMarksItOrdered(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	inquiry := models.Inquiry{
		InquiryNo: "RFQ-2026-0001", CompanyID: &f.company.ID, ContactName: "Buyer",
		ContactEmail: "buyer@acme.test", Status: enums.InquiryStatusQuoted, Currency: "USD",
	}
	require.NoError(t, f.conn.Create(&inquiry).Error)

	_, err := f.svc.Create(ctx, CreateInput{InquiryID: &inquiry.ID, Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.stranger)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	order, err := f.svc.Create(ctx, CreateInput{InquiryID: &inquiry.ID, Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.buyer)
	require.NoError(t, err)
	require.NotNil(t, order.InquiryID)

	var stored models.Inquiry
	require.NoError(t, f.conn.Where("id = ?", inquiry.ID).Take(&stored).Error)
	assert.Equal(t, enums.InquiryStatusOrdered, stored.Status)

	_, err = f.svc.Create(ctx, CreateInput{InquiryID: &inquiry.ID, Items: []ItemInput{{SKUID: f.tee.ID, Quantity: 10}}}, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 40, f.stock(t, f.tee.ID), "rejected order must not hold stock")
}

func TestCreateNotifiesAdminAndBuyer(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t, 10)

	calls := f.recorder.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, notifytest.KindAdmin, calls[0].Kind)
	assert.Equal(t, enums.NotificationTypeOrderNew, calls[0].Notice.Type)
	assert.Equal(t, notifytest.KindUser, calls[1].Kind)
	assert.Equal(t, f.buyer.UserID, calls[1].UserID)
	assert.Equal(t, enums.NotificationTypeOrderCreated, calls[1].Notice.Type)
	require.NotNil(t, calls[1].Notice.ReferenceID)
	assert.Equal(t, order.ID, *calls[1].Notice.ReferenceID)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, 10)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusProcessing).Error)
	assert.Equal(t, 40, f.stock(t, f.tee.ID))

	_, err := f.svc.Cancel(ctx, order.ID, f.stranger)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.Cancel(ctx, order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 50, f.stock(t, f.tee.ID))

	_, err = f.svc.Cancel(ctx, order.ID, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, "invalid_status", reason(t, err))
	assert.Equal(t, 50, f.stock(t, f.tee.ID), "stock is restored once")
}

func TestCancelRestoresRetiredSKU(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t, 10)
	require.NoError(t, f.conn.Delete(&models.SKU{}, "id = ?", f.tee.ID).Error)

	_, err := f.svc.Cancel(context.Background(), order.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, 50, f.stock(t, f.tee.ID))
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, 10)
	f.recorder.Reset()

	_, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.UpdateStatus(ctx, order.ID, "LOST", f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, f.admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	calls := f.recorder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, notifytest.KindUser, calls[0].Kind)
	assert.Equal(t, f.buyer.UserID, calls[0].UserID)
	assert.Equal(t, enums.NotificationTypeOrderStatus, calls[0].Notice.Type)

	updated, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, f.admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 50, f.stock(t, f.tee.ID))
}

func TestListAndGetAreCompanyScoped(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, 10)
	f.place(t, 5)

	mine, err := f.svc.List(ctx, f.buyer, ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)

	theirs, err := f.svc.List(ctx, f.stranger, ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, theirs.Total)
	assert.NotNil(t, theirs.Items)

	all, err := f.svc.List(ctx, f.admin, ListFilter{Search: "ord-2026-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Total)

	_, err = f.svc.List(ctx, nil, ListFilter{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Get(ctx, order.ID, f.stranger)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, uuid.New(), f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDocuments(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t, 10)

	pi, err := f.svc.Document(ctx, order.ID, DocumentProforma, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, "Proforma Invoice", pi.Title)
	assert.Equal(t, "PI-"+order.OrderNo, pi.Number)
	assert.Equal(t, "Acme", pi.Buyer.CompanyName)
	require.Len(t, pi.Lines, 1)
	require.NotNil(t, pi.Total)
	assert.True(t, decimal.NewFromInt(1000).Equal(*pi.Total))
	assert.Nil(t, pi.Shipment)

	require.NoError(t, f.conn.Create(&models.Payment{
		OrderID: order.ID, Amount: decimal.NewFromInt(400), Method: enums.PaymentMethodCreditCard, Status: enums.PaymentStatusCompleted,
	}).Error)
	require.NoError(t, f.conn.Create(&models.Payment{
		OrderID: order.ID, Amount: decimal.NewFromInt(600), Method: enums.PaymentMethodWireTransfer, Status: enums.PaymentStatusPending,
	}).Error)
	require.NoError(t, f.conn.Create(&models.Shipping{
		OrderID: order.ID, TrackingNo: "1Z999", Carrier: "UPS", ShippedAt: fixedNow,
	}).Error)

	ci, err := f.svc.Document(ctx, order.ID, DocumentCommercial, f.admin)
	require.NoError(t, err)
	require.NotNil(t, ci.AmountPaid)
	assert.True(t, decimal.NewFromInt(400).Equal(*ci.AmountPaid))
	require.NotNil(t, ci.Shipment)
	assert.Equal(t, "1Z999", ci.Shipment.TrackingNo)

	pl, err := f.svc.Document(ctx, order.ID, DocumentPacking, f.buyer)
	require.NoError(t, err)
	assert.Nil(t, pl.Total)
	assert.Nil(t, pl.Lines[0].UnitPrice)
	assert.Equal(t, 10, pl.TotalQuantity)

	_, err = f.svc.Document(ctx, order.ID, "xx", f.buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.Document(ctx, order.ID, DocumentProforma, f.stranger)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestExpireCancelsOnlyUnpaidOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	unpaid := f.place(t, 10)
	paid := f.place(t, 5)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", paid.ID).Update("status", enums.OrderStatusProcessing).Error)
	assert.Equal(t, 35, f.stock(t, f.tee.ID))

	rows, err := NewRepository(f.conn).ListUnpaidBefore(ctx, fixedNow.Add(time.Hour*24*365*10))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unpaid.ID, rows[0].ID)
	f.recorder.Reset()

	expired, err := f.svc.Expire(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 45, f.stock(t, f.tee.ID))

	calls := f.recorder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, enums.NotificationTypeOrderCancelled, calls[0].Notice.Type)

	expired, err = f.svc.Expire(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, 45, f.stock(t, f.tee.ID))
}
