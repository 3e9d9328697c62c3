package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"gorm.io/gorm"
)

// Source provides the price window the settlement engine reads. The history
// feed populating the store is an external concern.
type Source interface {
	// GetPrices returns the samples for symbol in [from, to], ascending by
	// timestamp. An empty or single-sample result is a valid response.
	GetPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceSample, error)
}

// Store is the gorm-backed price history store.
type Store struct {
	db *gorm.DB
}

var _ Source = (*Store)(nil)

// New creates a new Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetPrices implements Source.
func (s *Store) GetPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceSample, error) {
	var samples []models.PriceSample
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol, from, to).
		Order("timestamp ASC").
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	return samples, nil
}

// RecordSample appends one observation. Used by the ingestion feed adapter.
func (s *Store) RecordSample(ctx context.Context, sample *models.PriceSample) error {
	if err := s.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("failed to record price sample: %w", err)
	}
	return nil
}
