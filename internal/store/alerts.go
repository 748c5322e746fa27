package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stock-monitor-service/internal/models"
)

var (
	ErrAlertNotFound  = errors.New("alert not found")
	ErrAlertResolved  = errors.New("alert already resolved")
	ErrDuplicateAlert = errors.New("unresolved alert of this type already exists for product")
)

// AlertRegistry stores alerts with an active/resolved lifecycle. The
// invariant it enforces: at most one unresolved alert per
// (productID, type) pair. Alerts are never deleted; expiry is an external
// housekeeping concern.
type AlertRegistry struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]models.Alert
	// unresolved index keyed by product then alert type
	unresolved map[uuid.UUID]map[models.AlertType]uuid.UUID
}

func NewAlertRegistry() *AlertRegistry {
	return &AlertRegistry{
		alerts:     make(map[uuid.UUID]models.Alert),
		unresolved: make(map[uuid.UUID]map[models.AlertType]uuid.UUID),
	}
}

// Create stores a new unresolved alert, rejecting duplicates on the
// (product, type) dedup key.
func (r *AlertRegistry) Create(a models.Alert) (models.Alert, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Resolved = false
	a.ResolvedAt = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	byType := r.unresolved[a.ProductID]
	if byType != nil {
		if _, ok := byType[a.Type]; ok {
			return models.Alert{}, fmt.Errorf("%w: %s/%s", ErrDuplicateAlert, a.ProductID, a.Type)
		}
	} else {
		byType = make(map[models.AlertType]uuid.UUID)
		r.unresolved[a.ProductID] = byType
	}
	r.alerts[a.ID] = a
	byType[a.Type] = a.ID
	return a, nil
}

// Get returns a snapshot of one alert.
func (r *AlertRegistry) Get(id uuid.UUID) (models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.alerts[id]
	if !ok {
		return models.Alert{}, ErrAlertNotFound
	}
	return a, nil
}

// Resolve transitions an alert to resolved. unresolved -> resolved is the
// only transition; a resolved alert stays resolved.
func (r *AlertRegistry) Resolve(id uuid.UUID, at time.Time) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return models.Alert{}, ErrAlertNotFound
	}
	if a.Resolved {
		return models.Alert{}, ErrAlertResolved
	}
	ts := at.UTC()
	a.Resolved = true
	a.ResolvedAt = &ts
	r.alerts[id] = a
	if byType := r.unresolved[a.ProductID]; byType != nil {
		delete(byType, a.Type)
		if len(byType) == 0 {
			delete(r.unresolved, a.ProductID)
		}
	}
	return a, nil
}

// HasUnresolved reports whether the dedup key is occupied.
func (r *AlertRegistry) HasUnresolved(productID uuid.UUID, t models.AlertType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType := r.unresolved[productID]
	if byType == nil {
		return false
	}
	_, ok := byType[t]
	return ok
}

// Unresolved returns all unresolved alerts for a product.
func (r *AlertRegistry) Unresolved(productID uuid.UUID) []models.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType := r.unresolved[productID]
	out := make([]models.Alert, 0, len(byType))
	for _, id := range byType {
		out = append(out, r.alerts[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// HasAnyUnresolved reports whether the product has any unresolved alert.
func (r *AlertRegistry) HasAnyUnresolved(productID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.unresolved[productID]) > 0
}

// AlertFilter narrows List results. Nil/zero values mean "no constraint".
type AlertFilter struct {
	ProductID uuid.UUID
	Severity  models.AlertSeverity
	Active    *bool
}

// List returns alerts matching the filter, newest first.
func (r *AlertRegistry) List(filter AlertFilter) []models.Alert {
	r.mu.RLock()
	out := make([]models.Alert, 0)
	for _, a := range r.alerts {
		if filter.ProductID != uuid.Nil && a.ProductID != filter.ProductID {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Active != nil && *filter.Active == a.Resolved {
			continue
		}
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Summary returns alert counts by status, type and severity. Type and
// severity counts cover active alerts only.
func (r *AlertRegistry) Summary() models.AlertSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := models.AlertSummary{
		ByType:     make(map[string]int),
		BySeverity: make(map[string]int),
	}
	for _, a := range r.alerts {
		if a.Resolved {
			s.TotalResolved++
			continue
		}
		s.TotalActive++
		s.ByType[string(a.Type)]++
		s.BySeverity[string(a.Severity)]++
	}
	return s
}
