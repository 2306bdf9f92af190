package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWasteWithBase(t *testing.T, svc *WasteService, userID string) *FarmWaste {
	t.Helper()
	waste, err := svc.Create(context.Background(), userID, CreateWasteInput{
		Name: "Sekam Padi",
		UnitPrices: []UnitPriceInput{
			{Unit: "kg", PricePerUnit: 2000, Stock: 100, IsBaseUnit: true},
		},
	})
	require.NoError(t, err)
	return waste
}

func TestUnitPriceCreateSecondBaseRejected(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db, "u1")
	waste := seedWasteWithBase(t, NewWasteService(db, nil), "u1")
	svc := NewUnitPriceService(db)

	_, err := svc.Create(context.Background(), waste.ID, "u1", UnitPriceInput{
		Unit: "liter", PricePerUnit: 1500, IsBaseUnit: true,
	})
	assert.ErrorIs(t, err, ErrBaseUnitExists)
}

func TestUnitPriceCreateNonBaseNeedsConversion(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db, "u1")
	waste := seedWasteWithBase(t, NewWasteService(db, nil), "u1")
	svc := NewUnitPriceService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, waste.ID, "u1", UnitPriceInput{
		Unit: "karung", PricePerUnit: 90000, EqualWith: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidEqualWith)

	price, err := svc.Create(ctx, waste.ID, "u1", UnitPriceInput{
		Unit: "karung", PricePerUnit: 90000, Stock: 4, EqualWith: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, price.EqualWith)

	// Roll-up: 100 kg + 4 karung x 50 kg.
	var fresh FarmWaste
	require.NoError(t, db.Where("id = ?", waste.ID).First(&fresh).Error)
	assert.Equal(t, 300.0, fresh.StockTotal)
}

func TestUnitPriceUpdateAdjustsStockRollUp(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db, "u1")
	waste := seedWasteWithBase(t, NewWasteService(db, nil), "u1")
	svc := NewUnitPriceService(db)
	ctx := context.Background()

	prices, err := svc.ListByWaste(ctx, waste.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	stock := 40.0
	updated, err := svc.Update(ctx, prices[0].ID, "u1", UpdateUnitPriceInput{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 40.0, updated.Stock)

	var fresh FarmWaste
	require.NoError(t, db.Where("id = ?", waste.ID).First(&fresh).Error)
	assert.Equal(t, 40.0, fresh.StockTotal)
}

func TestUnitPriceDeleteBaseRules(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db, "u1")
	waste := seedWasteWithBase(t, NewWasteService(db, nil), "u1")
	svc := NewUnitPriceService(db)
	ctx := context.Background()

	base, err := svc.ListByWaste(ctx, waste.ID)
	require.NoError(t, err)

	other, err := svc.Create(ctx, waste.ID, "u1", UnitPriceInput{
		Unit: "karung", PricePerUnit: 90000, EqualWith: 50,
	})
	require.NoError(t, err)

	// Base unit is pinned while other units exist.
	assert.ErrorIs(t, svc.Delete(ctx, base[0].ID, "u1"), ErrBaseUnitInUse)

	require.NoError(t, svc.Delete(ctx, other.ID, "u1"))
	require.NoError(t, svc.Delete(ctx, base[0].ID, "u1"))

	remaining, err := svc.ListByWaste(ctx, waste.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestUnitPriceOwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db, "u1")
	seedStore(t, db, "u2")
	waste := seedWasteWithBase(t, NewWasteService(db, nil), "u1")
	svc := NewUnitPriceService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, waste.ID, "u2", UnitPriceInput{
		Unit: "karung", PricePerUnit: 90000, EqualWith: 50,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}
