package order

import (
	"context"
	"testing"

	"backend/internal/catalog"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newFixture(t *testing.T) (*gorm.DB, *Service, *catalog.FarmWaste) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalog.Store{}, &catalog.FarmWaste{}, &catalog.UnitPrice{}, &Transaction{},
	))

	require.NoError(t, db.Create(&catalog.Store{UserID: "seller", Name: "Toko Tani"}).Error)
	wastes := catalog.NewWasteService(db, nil)
	waste, err := wastes.Create(context.Background(), "seller", catalog.CreateWasteInput{
		Name:      "Sekam Padi",
		ImageURLs: []string{"https://img.example/sekam.jpg"},
		UnitPrices: []catalog.UnitPriceInput{
			{Unit: "kg", PricePerUnit: 2000, Stock: 100, IsBaseUnit: true},
		},
	})
	require.NoError(t, err)

	return db, NewService(db), waste
}

func TestCheckoutSnapshotsAndDecrementsStock(t *testing.T) {
	db, svc, waste := newFixture(t)
	ctx := context.Background()

	txn, err := svc.Create(ctx, "buyer", CheckoutInput{
		OrderID:      "ORDER-001",
		ShippingCost: 15000,
		Items: []CheckoutLine{
			{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, txn.Status)
	assert.Equal(t, 20000.0, txn.Subtotal)
	assert.Equal(t, 35000.0, txn.Total)
	require.Len(t, txn.Items, 1)
	assert.Equal(t, "Sekam Padi", txn.Items[0].Name)
	assert.Equal(t, "sekam-padi", txn.Items[0].Slug)
	assert.Equal(t, "https://img.example/sekam.jpg", txn.Items[0].ImageURL)
	assert.Equal(t, 20000.0, txn.Items[0].LineTotal)

	var price catalog.UnitPrice
	require.NoError(t, db.Where("id = ?", waste.UnitPrices[0].ID).First(&price).Error)
	assert.Equal(t, 90.0, price.Stock)

	var fresh catalog.FarmWaste
	require.NoError(t, db.Where("id = ?", waste.ID).First(&fresh).Error)
	assert.Equal(t, 90.0, fresh.StockTotal)
}

func TestCheckoutOrderIDConflict(t *testing.T) {
	_, svc, waste := newFixture(t)
	ctx := context.Background()

	line := CheckoutLine{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 1}
	_, err := svc.Create(ctx, "buyer", CheckoutInput{OrderID: "ORDER-001", Items: []CheckoutLine{line}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "buyer", CheckoutInput{OrderID: "ORDER-001", Items: []CheckoutLine{line}})
	assert.ErrorIs(t, err, ErrOrderIDTaken)
}

func TestCheckoutStockGuardRollsBack(t *testing.T) {
	db, svc, waste := newFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "buyer", CheckoutInput{
		OrderID: "ORDER-002",
		Items: []CheckoutLine{
			{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 50},
			{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 60},
		},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The first line's decrement must have been rolled back.
	var price catalog.UnitPrice
	require.NoError(t, db.Where("id = ?", waste.UnitPrices[0].ID).First(&price).Error)
	assert.Equal(t, 100.0, price.Stock)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListByUserWithStatusFilter(t *testing.T) {
	_, svc, waste := newFixture(t)
	ctx := context.Background()

	line := CheckoutLine{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 1}
	_, err := svc.Create(ctx, "buyer", CheckoutInput{OrderID: "A", Items: []CheckoutLine{line}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "buyer", CheckoutInput{OrderID: "B", Items: []CheckoutLine{line}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "A", StatusPaid)
	require.NoError(t, err)

	all, err := svc.ListByUser(ctx, "buyer", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	paid, err := svc.ListByUser(ctx, "buyer", StatusPaid)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, "A", paid[0].OrderID)

	_, err = svc.ListByUser(ctx, "buyer", "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusValidation(t *testing.T) {
	_, svc, waste := newFixture(t)
	ctx := context.Background()

	line := CheckoutLine{FarmWasteID: waste.ID, UnitPriceID: waste.UnitPrices[0].ID, Quantity: 1}
	_, err := svc.Create(ctx, "buyer", CheckoutInput{OrderID: "C", Items: []CheckoutLine{line}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "C", "delivered-maybe")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, "missing", StatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)

	txn, err := svc.UpdateStatus(ctx, "C", StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, txn.Status)
}
