package pricestore

import (
	"context"
	"testing"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.PriceSample{})
	assert.NoError(t, err)

	return New(db)
}

func TestGetPrices_OrderedAndFiltered(t *testing.T) {
	// Arrange
	store := setupTest(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order and outside the window to prove ordering/filtering.
	for _, s := range []models.PriceSample{
		{Symbol: "BTC", Price: 103, Timestamp: base.Add(3 * time.Minute)},
		{Symbol: "BTC", Price: 100, Timestamp: base},
		{Symbol: "ETH", Price: 50, Timestamp: base.Add(1 * time.Minute)},
		{Symbol: "BTC", Price: 101, Timestamp: base.Add(1 * time.Minute)},
		{Symbol: "BTC", Price: 90, Timestamp: base.Add(-1 * time.Hour)},
		{Symbol: "BTC", Price: 99, Timestamp: base.Add(2 * time.Minute)},
		{Symbol: "BTC", Price: 120, Timestamp: base.Add(1 * time.Hour)},
	} {
		sample := s
		assert.NoError(t, store.RecordSample(ctx, &sample))
	}

	// Act
	samples, err := store.GetPrices(ctx, "BTC", base, base.Add(10*time.Minute))

	// Assert
	assert.NoError(t, err)
	assert.Len(t, samples, 4)
	for i, want := range []float64{100, 101, 99, 103} {
		assert.Equal(t, want, samples[i].Price)
		assert.Equal(t, "BTC", samples[i].Symbol)
	}
	for i := 1; i < len(samples); i++ {
		assert.True(t, samples[i].Timestamp.After(samples[i-1].Timestamp))
	}
}

func TestGetPrices_EmptyWindowIsValid(t *testing.T) {
	store := setupTest(t)

	samples, err := store.GetPrices(context.Background(), "XRP", time.Now().Add(-time.Hour), time.Now())

	assert.NoError(t, err)
	assert.Empty(t, samples)
}
