package review

import (
	"context"
	"testing"

	"backend/internal/catalog"
	"backend/internal/user"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db     *gorm.DB
	wastes *catalog.WasteService
	svc    *Service
	store  catalog.Store
	wasteA *catalog.FarmWaste
	wasteB *catalog.FarmWaste
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&user.User{}, &catalog.Store{}, &catalog.FarmWaste{}, &catalog.UnitPrice{}, &Review{},
	))

	require.NoError(t, db.Create(&user.User{ID: "buyer", FullName: "Budi", Email: "budi@example.com", PasswordHash: "x"}).Error)

	store := catalog.Store{UserID: "seller", Name: "Toko Tani"}
	require.NoError(t, db.Create(&store).Error)

	wastes := catalog.NewWasteService(db, nil)
	svc := NewService(db, wastes)

	unit := []catalog.UnitPriceInput{{Unit: "kg", PricePerUnit: 1000, Stock: 10, IsBaseUnit: true}}
	wasteA, err := wastes.Create(context.Background(), "seller", catalog.CreateWasteInput{Name: "Sekam", UnitPrices: unit})
	require.NoError(t, err)
	wasteB, err := wastes.Create(context.Background(), "seller", catalog.CreateWasteInput{Name: "Ampas", UnitPrices: unit})
	require.NoError(t, err)

	return &fixture{db: db, wastes: wastes, svc: svc, store: store, wasteA: wasteA, wasteB: wasteB}
}

func (f *fixture) wasteRating(t *testing.T, id string) *float64 {
	t.Helper()
	var w catalog.FarmWaste
	require.NoError(t, f.db.Where("id = ?", id).First(&w).Error)
	return w.AverageRating
}

func (f *fixture) storeRating(t *testing.T) *float64 {
	t.Helper()
	var s catalog.Store
	require.NoError(t, f.db.Where("id = ?", f.store.ID).First(&s).Error)
	return s.AverageRating
}

func TestCreateReviewAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 4, Comment: "Bagus"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "buyer2", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 5})
	require.NoError(t, err)

	// (4+5)/2 = 4.5
	rating := f.wasteRating(t, f.wasteA.ID)
	require.NotNil(t, rating)
	assert.Equal(t, 4.5, *rating)

	// Only rated products count toward the store average.
	storeRating := f.storeRating(t)
	require.NotNil(t, storeRating)
	assert.Equal(t, 4.5, *storeRating)

	_, err = f.svc.Create(ctx, "buyer", CreateInput{FarmWasteID: f.wasteB.ID, Rating: 2})
	require.NoError(t, err)

	// Store: (4.5 + 2.0) / 2 = 3.3 after 1-decimal rounding.
	storeRating = f.storeRating(t)
	require.NotNil(t, storeRating)
	assert.Equal(t, 3.3, *storeRating)
}

func TestCreateReviewRoundsToOneDecimal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, rating := range []int{5, 4, 4} {
		_, err := f.svc.Create(ctx, string(rune('a'+i)), CreateInput{FarmWasteID: f.wasteA.ID, Rating: rating})
		require.NoError(t, err)
	}

	// 13/3 = 4.333... -> 4.3
	got := f.wasteRating(t, f.wasteA.ID)
	require.NotNil(t, got)
	assert.Equal(t, 4.3, *got)
}

func TestCreateReviewValidatesRating(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 0})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.svc.Create(context.Background(), "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.svc.Create(context.Background(), "buyer", CreateInput{FarmWasteID: "missing", Rating: 3})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRereviewReplacesInsteadOfDuplicating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 2})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 5})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&Review{}).Where("farm_waste_id = ?", f.wasteA.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rating := f.wasteRating(t, f.wasteA.ID)
	require.NotNil(t, rating)
	assert.Equal(t, 5.0, *rating)
}

func TestListByWasteIncludesReviewerName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 4, Comment: "Mantap"})
	require.NoError(t, err)

	details, err := f.svc.ListByWaste(context.Background(), f.wasteA.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Budi", details[0].ReviewerName)
	assert.Equal(t, "Mantap", details[0].Comment)
}

func TestDeleteReviewReaggregatesAndChecksOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rev, err := f.svc.Create(ctx, "buyer", CreateInput{FarmWasteID: f.wasteA.ID, Rating: 4})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, "someone-else", rev.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, "buyer", rev.ID))

	assert.Nil(t, f.wasteRating(t, f.wasteA.ID))
	assert.Nil(t, f.storeRating(t))

	assert.ErrorIs(t, f.svc.Delete(ctx, "buyer", rev.ID), ErrNotFound)
}
