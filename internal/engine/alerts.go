// Package engine contains the decision logic that runs over the stores:
// alert trigger evaluation, stock forecasting and reorder recommendations.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/store"
)

const (
	// OverstockCapacityRatio is the fraction of max capacity above which
	// a product is considered overstocked.
	OverstockCapacityRatio = 0.9
	// RapidDepletionWindow is the trailing window inspected on sales.
	RapidDepletionWindow = time.Hour
	// RapidDepletionRatio is the fractional loss over the window that
	// qualifies as rapid depletion.
	RapidDepletionRatio = 0.30
)

// RecommendationSource supplies a best-effort recommendation for a single
// product at alert creation time.
type RecommendationSource interface {
	ForProduct(productID uuid.UUID) (models.Recommendation, bool)
}

// AlertEngine evaluates trigger conditions after every ledger mutation and
// maintains the alert lifecycle in the registry.
type AlertEngine struct {
	history  *store.History
	registry *store.AlertRegistry
	recs     RecommendationSource
	logger   *logrus.Entry
}

// AlertOutcome reports what one evaluation pass changed.
type AlertOutcome struct {
	Created  []models.Alert
	Resolved []models.Alert
}

func NewAlertEngine(history *store.History, registry *store.AlertRegistry, recs RecommendationSource, logger *logrus.Logger) *AlertEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AlertEngine{
		history:  history,
		registry: registry,
		recs:     recs,
		logger:   logger.WithField("component", "alert-engine"),
	}
}

// Evaluate runs every trigger against the product snapshot, creating
// deduplicated alerts, then runs the auto-resolution pass over the
// product's unresolved alerts. Triggers are independent: all are checked
// every time, not as an else-if chain.
func (e *AlertEngine) Evaluate(p models.Product, ev models.StockEvent) AlertOutcome {
	var out AlertOutcome

	stock := p.CurrentStock
	if stock >= 0 && stock < store.CriticalStockThreshold {
		out.Created = append(out.Created, e.create(p, models.AlertTypeCriticalLowStock, models.AlertSeverityCritical,
			fmt.Sprintf("Critical low stock: %s (SKU: %s) has only %d units remaining", p.Name, p.SKU, stock))...)
	}
	if stock < p.ReorderPoint && stock >= store.CriticalStockThreshold {
		out.Created = append(out.Created, e.create(p, models.AlertTypeLowStock, models.AlertSeverityWarning,
			fmt.Sprintf("Low stock: %s (SKU: %s) has %d units remaining (reorder point: %d)", p.Name, p.SKU, stock, p.ReorderPoint))...)
	}
	if float64(stock) > OverstockCapacityRatio*float64(p.MaxCapacity) {
		out.Created = append(out.Created, e.create(p, models.AlertTypeOverstock, models.AlertSeverityInfo,
			fmt.Sprintf("Overstock: %s (SKU: %s) holds %d units, above %.0f%% of capacity %d", p.Name, p.SKU, stock, OverstockCapacityRatio*100, p.MaxCapacity))...)
	}
	if ev.Type == models.EventTypeSale {
		if net, start, ok := e.depletionOverWindow(p, ev.Timestamp); ok {
			out.Created = append(out.Created, e.create(p, models.AlertTypeRapidDepletion, models.AlertSeverityWarning,
				fmt.Sprintf("Rapid depletion: %s (SKU: %s) lost %d units in the last hour (%.0f%% of stock)", p.Name, p.SKU, -net, 100*float64(-net)/float64(start)))...)
		}
	}
	if stock > 0 && stock <= p.ReorderPoint {
		out.Created = append(out.Created, e.create(p, models.AlertTypeReorderNeeded, models.AlertSeverityWarning,
			fmt.Sprintf("Reorder needed: %s (SKU: %s) is at %d units (reorder point: %d)", p.Name, p.SKU, stock, p.ReorderPoint))...)
	}

	out.Resolved = e.autoResolve(p, ev.Timestamp)
	return out
}

// depletionOverWindow computes the net stock change over the trailing
// window ending at the event timestamp. It reports the net change, the
// reconstructed stock at window start, and whether the rapid-depletion
// condition holds.
func (e *AlertEngine) depletionOverWindow(p models.Product, at time.Time) (net, start int, ok bool) {
	for _, ev := range e.history.InWindow(p.ID, at.Add(-RapidDepletionWindow), at) {
		net += ev.SignedDelta()
	}
	start = p.CurrentStock - net
	if net >= 0 || start <= 0 {
		return net, start, false
	}
	return net, start, float64(-net)/float64(start) > RapidDepletionRatio
}

// create stores a new alert unless the (product, type) dedup key is
// occupied. It returns a slice so callers can append directly.
func (e *AlertEngine) create(p models.Product, t models.AlertType, sev models.AlertSeverity, msg string) []models.Alert {
	if e.registry.HasUnresolved(p.ID, t) {
		return nil
	}
	alert := models.Alert{
		ProductID: p.ID,
		Severity:  sev,
		Type:      t,
		Message:   msg,
	}
	// Snapshot a recommendation at creation time. Best effort: no
	// recommendation must not block the alert.
	if e.recs != nil {
		if rec, found := e.recs.ForProduct(p.ID); found {
			text := rec.Action
			if rec.SuggestedQuantity > 0 {
				text = fmt.Sprintf("%s (suggested quantity: %d)", rec.Action, rec.SuggestedQuantity)
			}
			alert.Recommendation = &text
		}
	}
	created, err := e.registry.Create(alert)
	if err != nil {
		// Lost a race on the dedup key; the invariant holds either way.
		e.logger.WithFields(logrus.Fields{"productId": p.ID, "type": t}).WithError(err).Debug("Alert creation skipped")
		return nil
	}
	e.logger.WithFields(logrus.Fields{
		"productId": p.ID,
		"type":      t,
		"severity":  sev,
	}).Info("Alert created")
	return []models.Alert{created}
}

// autoResolve closes every unresolved alert on the product whose condition
// no longer holds. Rapid depletion is transient and only resolves
// manually.
func (e *AlertEngine) autoResolve(p models.Product, at time.Time) []models.Alert {
	var resolved []models.Alert
	for _, a := range e.registry.Unresolved(p.ID) {
		if !e.conditionCleared(p, a.Type) {
			continue
		}
		r, err := e.registry.Resolve(a.ID, at)
		if err != nil {
			continue
		}
		e.logger.WithFields(logrus.Fields{
			"alertId":   a.ID,
			"productId": p.ID,
			"type":      a.Type,
		}).Info("Alert auto-resolved")
		resolved = append(resolved, r)
	}
	return resolved
}

func (e *AlertEngine) conditionCleared(p models.Product, t models.AlertType) bool {
	switch t {
	case models.AlertTypeCriticalLowStock:
		return p.CurrentStock >= store.CriticalStockThreshold
	case models.AlertTypeLowStock, models.AlertTypeReorderNeeded:
		return p.CurrentStock >= p.ReorderPoint
	case models.AlertTypeOverstock:
		return float64(p.CurrentStock) <= OverstockCapacityRatio*float64(p.MaxCapacity)
	case models.AlertTypeRapidDepletion:
		return false
	}
	return false
}
