package engine

import (
	"math"
	"time"

	"stock-monitor-service/internal/models"
)

const (
	// DefaultForecastWindowDays is the trailing history window bucketed
	// into daily net changes.
	DefaultForecastWindowDays = 30
	// DefaultForecastHorizonDays is the projection horizon.
	DefaultForecastHorizonDays = 7

	// InsufficientDataConfidence is reported when fewer than two day
	// buckets exist. Not an error, just a flat prior.
	InsufficientDataConfidence = 0.5
	minConfidence              = 0.1
	maxConfidence              = 0.95
)

// Forecaster projects stock levels from event history using a daily
// moving average. It is pure and stateless: the same product and history
// always produce the same forecast.
type Forecaster struct {
	WindowDays int
}

func NewForecaster(windowDays int) *Forecaster {
	if windowDays <= 0 {
		windowDays = DefaultForecastWindowDays
	}
	return &Forecaster{WindowDays: windowDays}
}

// Forecast buckets the product's events into per-day net stock changes
// over the trailing window and extrapolates the mean daily change over
// the horizon. Confidence derives from the coefficient of variation of
// the daily changes.
func (f *Forecaster) Forecast(p models.Product, events []models.StockEvent, now time.Time, horizonDays int) models.Forecast {
	if horizonDays <= 0 {
		horizonDays = DefaultForecastHorizonDays
	}
	cutoff := now.AddDate(0, 0, -f.WindowDays)

	buckets := make(map[string]int)
	for _, ev := range events {
		if ev.Timestamp.Before(cutoff) || ev.Timestamp.After(now) {
			continue
		}
		day := ev.Timestamp.UTC().Format("2006-01-02")
		buckets[day] += ev.SignedDelta()
	}

	mean, stddev := meanStddev(buckets)
	predicted := math.Max(0, float64(p.CurrentStock)+mean*float64(horizonDays))

	confidence := InsufficientDataConfidence
	if len(buckets) >= 2 && mean != 0 {
		confidence = clamp(1-math.Abs(stddev/mean), minConfidence, maxConfidence)
	}

	return models.Forecast{
		ProductID:          p.ID,
		CurrentStock:       p.CurrentStock,
		PredictedStock:     predicted,
		PredictedDemand:    math.Abs(mean * float64(horizonDays)),
		ReorderRecommended: predicted < float64(p.ReorderPoint),
		Confidence:         confidence,
		HorizonDays:        horizonDays,
	}
}

func meanStddev(buckets map[string]int) (mean, stddev float64) {
	if len(buckets) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range buckets {
		sum += float64(v)
	}
	mean = sum / float64(len(buckets))

	var sq float64
	for _, v := range buckets {
		d := float64(v) - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(len(buckets)))
	return mean, stddev
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
