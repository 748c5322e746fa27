package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request/Response models

type CreateProductRequest struct {
	SKU          string  `json:"sku" binding:"required,min=1,max=100"`
	Name         string  `json:"name" binding:"required,min=1,max=255"`
	Category     string  `json:"category" binding:"required"`
	WarehouseID  string  `json:"warehouseId" binding:"required"`
	CurrentStock int     `json:"currentStock" binding:"gte=0"`
	ReorderPoint int     `json:"reorderPoint" binding:"gte=0"`
	MaxCapacity  int     `json:"maxCapacity" binding:"required,gt=0"`
	UnitPrice    float64 `json:"unitPrice" binding:"gte=0"`
}

type IngestEventRequest struct {
	ID        *uuid.UUID      `json:"id,omitempty"`
	Type      EventType       `json:"type" binding:"required"`
	ProductID uuid.UUID       `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Meta      EventMeta       `json:"meta,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

type IngestEventAck struct {
	Status     string    `json:"status"`
	EventID    uuid.UUID `json:"eventId"`
	ProductID  uuid.UUID `json:"productId"`
	QueueDepth int       `json:"queueDepth"`
}

type BatchIngestRequest struct {
	Events []IngestEventRequest `json:"events" binding:"required,min=1,max=500"`
}

type BatchIngestResponse struct {
	Success       bool             `json:"success"`
	AcceptedCount int              `json:"acceptedCount"`
	RejectedCount int              `json:"rejectedCount"`
	Acks          []IngestEventAck `json:"acks,omitempty"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data,omitempty"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type EventListResponse struct {
	Success bool         `json:"success"`
	Data    []StockEvent `json:"data"`
}

type AlertResponse struct {
	Success bool    `json:"success"`
	Data    *Alert  `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

type AlertListResponse struct {
	Success bool    `json:"success"`
	Data    []Alert `json:"data"`
}

type AlertSummaryResponse struct {
	Success bool          `json:"success"`
	Data    *AlertSummary `json:"data,omitempty"`
}

type ForecastResponse struct {
	Success bool      `json:"success"`
	Data    *Forecast `json:"data,omitempty"`
}

type ForecastListResponse struct {
	Success bool       `json:"success"`
	Data    []Forecast `json:"data"`
}

type RecommendationListResponse struct {
	Success bool             `json:"success"`
	Data    []Recommendation `json:"data"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}
