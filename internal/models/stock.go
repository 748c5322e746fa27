package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of stock change event
type EventType string

const (
	EventTypeSale    EventType = "SALE"
	EventTypeRestock EventType = "RESTOCK"
	EventTypeReturn  EventType = "RETURN"
)

// Valid reports whether the event type is one of the known kinds
func (t EventType) Valid() bool {
	switch t {
	case EventTypeSale, EventTypeRestock, EventTypeReturn:
		return true
	}
	return false
}

// EventMeta carries provenance for a stock event
type EventMeta struct {
	Source    string `json:"source,omitempty"`
	Reference string `json:"reference,omitempty"`
	Note      string `json:"note,omitempty"`
}

// StockEvent represents a single stock change. Immutable once ingested;
// owned by the history store after processing.
type StockEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
	Meta      EventMeta       `json:"meta,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

// SignedDelta returns the stock delta this event applies: negative for
// sales, positive for restocks and returns.
func (e StockEvent) SignedDelta() int {
	if e.Type == EventTypeSale {
		return -e.Quantity
	}
	return e.Quantity
}

// Product represents the current state of a tracked product
type Product struct {
	ID           uuid.UUID `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	WarehouseID  string    `json:"warehouseId"`
	CurrentStock int       `json:"currentStock"`
	ReorderPoint int       `json:"reorderPoint"`
	MaxCapacity  int       `json:"maxCapacity"`
	UnitPrice    float64   `json:"unitPrice"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AlertSeverity represents how urgent an alert is
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

// AlertType represents the condition class that raised an alert
type AlertType string

const (
	AlertTypeCriticalLowStock AlertType = "CRITICAL_LOW_STOCK"
	AlertTypeLowStock         AlertType = "LOW_STOCK"
	AlertTypeOverstock        AlertType = "OVERSTOCK"
	AlertTypeRapidDepletion   AlertType = "RAPID_DEPLETION"
	AlertTypeReorderNeeded    AlertType = "REORDER_NEEDED"
)

// Alert represents a stock condition notification. At most one unresolved
// alert exists per (ProductID, Type) pair at any time.
type Alert struct {
	ID             uuid.UUID     `json:"id"`
	ProductID      uuid.UUID     `json:"productId"`
	Severity       AlertSeverity `json:"severity"`
	Type           AlertType     `json:"type"`
	Message        string        `json:"message"`
	Recommendation *string       `json:"recommendation,omitempty"`
	Resolved       bool          `json:"resolved"`
	CreatedAt      time.Time     `json:"createdAt"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// Forecast is a derived stock projection; recomputed per request and
// never persisted.
type Forecast struct {
	ProductID          uuid.UUID `json:"productId"`
	CurrentStock       int       `json:"currentStock"`
	PredictedStock     float64   `json:"predictedStock"`
	PredictedDemand    float64   `json:"predictedDemand"`
	ReorderRecommended bool      `json:"reorderRecommended"`
	Confidence         float64   `json:"confidence"`
	HorizonDays        int       `json:"horizonDays"`
}

// RecommendationPriority orders recommended actions
type RecommendationPriority string

const (
	RecommendationPriorityCritical RecommendationPriority = "critical"
	RecommendationPriorityHigh     RecommendationPriority = "high"
	RecommendationPriorityMedium   RecommendationPriority = "medium"
	RecommendationPriorityLow      RecommendationPriority = "low"
)

// Rank returns the sort rank of a priority, lower is more urgent.
func (p RecommendationPriority) Rank() int {
	switch p {
	case RecommendationPriorityCritical:
		return 0
	case RecommendationPriorityHigh:
		return 1
	case RecommendationPriorityMedium:
		return 2
	case RecommendationPriorityLow:
		return 3
	}
	return 4
}

// Recommendation is a derived reorder suggestion. DaysUntilStockout is -1
// when sales velocity is zero (stockout unbounded).
type Recommendation struct {
	ProductID         uuid.UUID              `json:"productId"`
	Priority          RecommendationPriority `json:"priority"`
	Action            string                 `json:"action"`
	Reason            string                 `json:"reason"`
	SuggestedQuantity int                    `json:"suggestedQuantity"`
	DaysUntilStockout float64                `json:"daysUntilStockout"`
	Confidence        float64                `json:"confidence"`
}

// AlertSummary represents counts of alerts by dimension
type AlertSummary struct {
	TotalActive   int            `json:"totalActive"`
	TotalResolved int            `json:"totalResolved"`
	ByType        map[string]int `json:"byType"`
	BySeverity    map[string]int `json:"bySeverity"`
}
