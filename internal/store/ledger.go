// Package store holds the in-memory authoritative state of the pipeline:
// the product ledger, the event history and the alert registry. All stores
// are explicit objects injected into their consumers; readers always get
// detached snapshots.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/models"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product already exists")
	ErrInvalidProduct   = errors.New("invalid product")
)

// Ledger is the authoritative current-state store for products. Products
// are provisioned once and never deleted; stock is mutated only through
// Apply.
type Ledger struct {
	mu       sync.RWMutex
	products map[uuid.UUID]models.Product
	bySKU    map[string]uuid.UUID

	anomalies atomic.Uint64
	logger    *logrus.Entry
}

func NewLedger(logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Ledger{
		products: make(map[uuid.UUID]models.Product),
		bySKU:    make(map[string]uuid.UUID),
		logger:   logger.WithField("component", "ledger"),
	}
}

// Create provisions a new product. Threshold invariants are enforced here:
// a product with reorderPoint >= maxCapacity points at an upstream data
// bug and is rejected rather than silently corrected.
func (l *Ledger) Create(p models.Product) (models.Product, error) {
	if p.CurrentStock < 0 {
		return models.Product{}, fmt.Errorf("%w: currentStock must be >= 0", ErrInvalidProduct)
	}
	if p.ReorderPoint >= p.MaxCapacity {
		return models.Product{}, fmt.Errorf("%w: reorderPoint %d must be below maxCapacity %d", ErrInvalidProduct, p.ReorderPoint, p.MaxCapacity)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.UpdatedAt = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.products[p.ID]; ok {
		return models.Product{}, ErrDuplicateProduct
	}
	if p.SKU != "" {
		if _, ok := l.bySKU[p.SKU]; ok {
			return models.Product{}, fmt.Errorf("%w: sku %s", ErrDuplicateProduct, p.SKU)
		}
		l.bySKU[p.SKU] = p.ID
	}
	l.products[p.ID] = p
	return p, nil
}

// Get returns a snapshot of one product.
func (l *Ledger) Get(id uuid.UUID) (models.Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.products[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Apply adjusts a product's stock by delta and returns the new snapshot.
// A delta that would drive stock negative is clamped to zero and counted
// as an anomaly; downstream consumers treat the flag as an error signal
// but the ledger itself stays mathematically consistent.
func (l *Ledger) Apply(id uuid.UUID, delta int, at time.Time) (models.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	next := p.CurrentStock + delta
	if next < 0 {
		l.anomalies.Add(1)
		l.logger.WithFields(logrus.Fields{
			"productId": id,
			"stock":     p.CurrentStock,
			"delta":     delta,
		}).Warn("Stock delta would drive stock negative, clamping to zero")
		next = 0
	}
	p.CurrentStock = next
	p.UpdatedAt = at.UTC()
	l.products[id] = p
	return p, nil
}

// ProductFilter narrows List results. Zero values mean "no constraint".
type ProductFilter struct {
	Category    string
	WarehouseID string
}

// List returns products matching the filter, sorted by SKU, with
// caller-supplied limit/offset. The returned total is the matching count
// before pagination.
func (l *Ledger) List(filter ProductFilter, limit, offset int) ([]models.Product, int) {
	l.mu.RLock()
	out := make([]models.Product, 0, len(l.products))
	for _, p := range l.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.WarehouseID != "" && p.WarehouseID != filter.WarehouseID {
			continue
		}
		out = append(out, p)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	total := len(out)
	if offset > 0 {
		if offset >= len(out) {
			return []models.Product{}, total
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total
}

// All returns a snapshot of every product.
func (l *Ledger) All() []models.Product {
	out, _ := l.List(ProductFilter{}, 0, 0)
	return out
}

// LowStock returns products at or below their reorder point, most
// depleted first.
func (l *Ledger) LowStock() []models.Product {
	return l.view(func(p models.Product) bool { return p.CurrentStock <= p.ReorderPoint })
}

// CriticalStock returns products below the critical threshold.
func (l *Ledger) CriticalStock() []models.Product {
	return l.view(func(p models.Product) bool { return p.CurrentStock < CriticalStockThreshold })
}

func (l *Ledger) view(keep func(models.Product) bool) []models.Product {
	l.mu.RLock()
	out := make([]models.Product, 0)
	for _, p := range l.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentStock < out[j].CurrentStock })
	return out
}

// Count returns the number of provisioned products.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.products)
}

// Anomalies returns how many deltas required clamping.
func (l *Ledger) Anomalies() uint64 { return l.anomalies.Load() }

// CriticalStockThreshold is the stock level below which a product is
// considered critically low regardless of its reorder point.
const CriticalStockThreshold = 10
