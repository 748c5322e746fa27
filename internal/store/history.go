package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"stock-monitor-service/internal/models"
)

// History is the append-only record of processed stock events, indexed by
// product. Append is idempotent on event ID so redelivered messages are
// absorbed as no-ops.
type History struct {
	mu        sync.RWMutex
	byProduct map[uuid.UUID][]models.StockEvent
	seen      map[uuid.UUID]struct{}
	total     int
}

func NewHistory() *History {
	return &History{
		byProduct: make(map[uuid.UUID][]models.StockEvent),
		seen:      make(map[uuid.UUID]struct{}),
	}
}

// Append records an event. It reports true when the event ID was already
// seen, in which case nothing is stored.
func (h *History) Append(ev models.StockEvent) (seen bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[ev.ID]; ok {
		return true
	}
	h.seen[ev.ID] = struct{}{}
	h.byProduct[ev.ProductID] = append(h.byProduct[ev.ProductID], ev)
	h.total++
	return false
}

// Seen reports whether an event ID has already been processed.
func (h *History) Seen(id uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.seen[id]
	return ok
}

// ByProduct returns a product's events in processed order. A positive
// limit keeps only the most recent events.
func (h *History) ByProduct(productID uuid.UUID, limit int) []models.StockEvent {
	h.mu.RLock()
	events := h.byProduct[productID]
	out := make([]models.StockEvent, len(events))
	copy(out, events)
	h.mu.RUnlock()
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out
}

// InWindow returns a product's events with timestamps in (from, to].
func (h *History) InWindow(productID uuid.UUID, from, to time.Time) []models.StockEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []models.StockEvent
	for _, ev := range h.byProduct[productID] {
		if ev.Timestamp.After(from) && !ev.Timestamp.After(to) {
			out = append(out, ev)
		}
	}
	return out
}

// Since returns a product's events with timestamps at or after the cutoff.
func (h *History) Since(productID uuid.UUID, cutoff time.Time) []models.StockEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []models.StockEvent
	for _, ev := range h.byProduct[productID] {
		if !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the total number of stored events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
