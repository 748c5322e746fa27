package engine

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/store"
)

const (
	// DefaultRecommendationTTL bounds how long a computed batch stays
	// valid.
	DefaultRecommendationTTL = 5 * time.Minute

	velocityWindowDays      = 30
	stockoutAttentionDays   = 14
	lowCapacityRatio        = 0.20
	reorderSafetyMultiplier = 1.2
)

// Clock abstracts wall-clock reads so cache TTL behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RecommendationEngine computes prioritized reorder recommendations over
// the whole ledger and caches the batch result in a single slot with a
// fixed TTL. The cache is keyed globally, never per product; a per-product
// lookup filters the batch.
type RecommendationEngine struct {
	ledger   *store.Ledger
	history  *store.History
	registry *store.AlertRegistry
	ttl      time.Duration
	clock    Clock
	logger   *logrus.Entry

	mu       sync.Mutex
	cached   []models.Recommendation
	cachedAt time.Time
}

func NewRecommendationEngine(ledger *store.Ledger, history *store.History, registry *store.AlertRegistry, ttl time.Duration, clock Clock, logger *logrus.Logger) *RecommendationEngine {
	if ttl <= 0 {
		ttl = DefaultRecommendationTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecommendationEngine{
		ledger:   ledger,
		history:  history,
		registry: registry,
		ttl:      ttl,
		clock:    clock,
		logger:   logger.WithField("component", "recommendation-engine"),
	}
}

// All returns the current recommendation batch, recomputing it when the
// cached slot has expired. Concurrent recomputations are harmless: last
// writer wins and both results are valid within the TTL window.
func (e *RecommendationEngine) All() []models.Recommendation {
	now := e.clock.Now()
	e.mu.Lock()
	if e.cached != nil && now.Sub(e.cachedAt) < e.ttl {
		out := e.cached
		e.mu.Unlock()
		return out
	}
	e.mu.Unlock()
	return e.Refresh()
}

// ForProduct returns the recommendation for one product, running the full
// batch first if the cache is cold.
func (e *RecommendationEngine) ForProduct(productID uuid.UUID) (models.Recommendation, bool) {
	for _, rec := range e.All() {
		if rec.ProductID == productID {
			return rec, true
		}
	}
	return models.Recommendation{}, false
}

// Refresh recomputes the batch and stores it in the cache slot.
func (e *RecommendationEngine) Refresh() []models.Recommendation {
	now := e.clock.Now()
	recs := e.compute(now)
	e.mu.Lock()
	e.cached = recs
	e.cachedAt = now
	e.mu.Unlock()
	e.logger.WithField("count", len(recs)).Debug("Recommendation batch recomputed")
	return recs
}

// Invalidate clears the cache slot so the next read recomputes.
func (e *RecommendationEngine) Invalidate() {
	e.mu.Lock()
	e.cached = nil
	e.cachedAt = time.Time{}
	e.mu.Unlock()
}

func (e *RecommendationEngine) compute(now time.Time) []models.Recommendation {
	products := e.ledger.All()
	out := make([]models.Recommendation, 0)
	for _, p := range products {
		rec, needed := e.recommend(p, now)
		if needed {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out
}

// recommend evaluates one product. The priority ladder is strict and
// ordered: the first matching rule wins.
func (e *RecommendationEngine) recommend(p models.Product, now time.Time) (models.Recommendation, bool) {
	velocity := e.salesVelocity(p.ID, now)

	days := math.Inf(1)
	if velocity > 0 {
		days = float64(p.CurrentStock) / velocity
	}

	needsAttention := p.CurrentStock <= p.ReorderPoint ||
		days < stockoutAttentionDays ||
		e.registry.HasAnyUnresolved(p.ID) ||
		float64(p.CurrentStock)/float64(p.MaxCapacity) < lowCapacityRatio
	if !needsAttention {
		return models.Recommendation{}, false
	}

	rec := models.Recommendation{
		ProductID:         p.ID,
		SuggestedQuantity: suggestedQuantity(p, velocity),
		DaysUntilStockout: days,
	}
	if math.IsInf(days, 1) {
		rec.DaysUntilStockout = -1
	}

	switch {
	case p.CurrentStock == 0:
		rec.Priority = models.RecommendationPriorityCritical
		rec.Confidence = 0.95
		rec.Action = "Reorder immediately"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) is out of stock", p.Name, p.SKU)
	case days < 3:
		rec.Priority = models.RecommendationPriorityCritical
		rec.Confidence = 0.90
		rec.Action = "Reorder immediately"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) will stock out in about %.1f days at current sales velocity", p.Name, p.SKU, days)
	case days < 7:
		rec.Priority = models.RecommendationPriorityHigh
		rec.Confidence = 0.85
		rec.Action = "Reorder this week"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) will stock out in about %.1f days", p.Name, p.SKU, days)
	case p.CurrentStock <= p.ReorderPoint:
		rec.Priority = models.RecommendationPriorityHigh
		rec.Confidence = 0.80
		rec.Action = "Reorder soon"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) is at or below its reorder point (%d)", p.Name, p.SKU, p.ReorderPoint)
	case days < stockoutAttentionDays:
		rec.Priority = models.RecommendationPriorityMedium
		rec.Confidence = 0.75
		rec.Action = "Plan reorder"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) will stock out in about %.1f days", p.Name, p.SKU, days)
	default:
		rec.Priority = models.RecommendationPriorityLow
		rec.Confidence = 0.70
		rec.Action = "Monitor"
		rec.Reason = fmt.Sprintf("%s (SKU: %s) has open alerts or low capacity utilization", p.Name, p.SKU)
	}
	return rec, true
}

// salesVelocity is the average SALE quantity per day over the trailing
// 30-day window.
func (e *RecommendationEngine) salesVelocity(productID uuid.UUID, now time.Time) float64 {
	var sold int
	for _, ev := range e.history.Since(productID, now.AddDate(0, 0, -velocityWindowDays)) {
		if ev.Type == models.EventTypeSale {
			sold += ev.Quantity
		}
	}
	return float64(sold) / float64(velocityWindowDays)
}

// suggestedQuantity covers ~30 days of demand with a safety margin,
// capped by remaining capacity and floored at the reorder point.
func suggestedQuantity(p models.Product, velocity float64) int {
	qty := math.Min(velocity*velocityWindowDays*reorderSafetyMultiplier, float64(p.MaxCapacity-p.CurrentStock))
	n := int(math.Round(qty))
	if n < p.ReorderPoint {
		n = p.ReorderPoint
	}
	return n
}
