package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stock-monitor-service/internal/models"
)

func TestForecastNoEventsKeepsCurrentStock(t *testing.T) {
	f := NewForecaster(30)
	p := product(80, 20, 500)

	got := f.Forecast(p, nil, time.Now(), 7)

	assert.Equal(t, 80.0, got.PredictedStock)
	assert.Equal(t, 0.0, got.PredictedDemand)
	assert.Equal(t, InsufficientDataConfidence, got.Confidence)
	assert.False(t, got.ReorderRecommended)
	assert.Equal(t, 7, got.HorizonDays)
}

func TestForecastSteadySales(t *testing.T) {
	f := NewForecaster(30)
	p := product(100, 20, 500)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// 5 units sold per day over 10 distinct days
	var events []models.StockEvent
	for i := 1; i <= 10; i++ {
		events = append(events, sale(p.ID, 5, now.AddDate(0, 0, -i)))
	}

	got := f.Forecast(p, events, now, 7)

	// mean daily change is -5, so the projection loses 35 units
	assert.InDelta(t, 65.0, got.PredictedStock, 0.001)
	assert.InDelta(t, 35.0, got.PredictedDemand, 0.001)
	// zero variance across buckets gives maximum confidence
	assert.InDelta(t, 0.95, got.Confidence, 0.001)
	assert.False(t, got.ReorderRecommended)
}

func TestForecastClampsAtZero(t *testing.T) {
	f := NewForecaster(30)
	p := product(8, 20, 500)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	var events []models.StockEvent
	for i := 1; i <= 5; i++ {
		events = append(events, sale(p.ID, 10, now.AddDate(0, 0, -i)))
	}

	got := f.Forecast(p, events, now, 7)

	assert.Equal(t, 0.0, got.PredictedStock)
	assert.True(t, got.ReorderRecommended)
}

func TestForecastSingleBucketUsesFlatPrior(t *testing.T) {
	f := NewForecaster(30)
	p := product(100, 20, 500)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	events := []models.StockEvent{
		sale(p.ID, 3, now.Add(-2*time.Hour)),
		sale(p.ID, 4, now.Add(-time.Hour)),
	}

	got := f.Forecast(p, events, now, 7)
	assert.Equal(t, InsufficientDataConfidence, got.Confidence)
}

func TestForecastConfidenceStaysInBounds(t *testing.T) {
	f := NewForecaster(30)
	p := product(200, 20, 500)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// highly variable days, mixing sales and restocks
	events := []models.StockEvent{
		sale(p.ID, 1, now.AddDate(0, 0, -1)),
		sale(p.ID, 40, now.AddDate(0, 0, -2)),
		restock(p.ID, 35, now.AddDate(0, 0, -3)),
		sale(p.ID, 2, now.AddDate(0, 0, -4)),
		restock(p.ID, 60, now.AddDate(0, 0, -5)),
	}

	got := f.Forecast(p, events, now, 7)
	assert.GreaterOrEqual(t, got.Confidence, 0.1)
	assert.LessOrEqual(t, got.Confidence, 0.95)
}

func TestForecastIgnoresEventsOutsideWindow(t *testing.T) {
	f := NewForecaster(30)
	p := product(100, 20, 500)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	events := []models.StockEvent{
		sale(p.ID, 50, now.AddDate(0, 0, -40)), // before the window
		sale(p.ID, 50, now.Add(time.Hour)),     // in the future
	}

	got := f.Forecast(p, events, now, 7)
	assert.Equal(t, 100.0, got.PredictedStock)
	assert.Equal(t, InsufficientDataConfidence, got.Confidence)
}

func TestForecastDefaultsHorizon(t *testing.T) {
	f := NewForecaster(0)
	assert.Equal(t, DefaultForecastWindowDays, f.WindowDays)

	got := f.Forecast(product(10, 5, 100), nil, time.Now(), 0)
	assert.Equal(t, DefaultForecastHorizonDays, got.HorizonDays)
}
