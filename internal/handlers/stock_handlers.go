package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-monitor-service/internal/config"
	"stock-monitor-service/internal/engine"
	"stock-monitor-service/internal/events"
	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/processor"
	"stock-monitor-service/internal/store"
)

// StockHandler serves the read-only query boundary plus the two operator
// actions (product provisioning, manual alert resolution) and the event
// ingestion endpoint.
type StockHandler struct {
	cfg        *config.Config
	ledger     *store.Ledger
	history    *store.History
	registry   *store.AlertRegistry
	forecaster *engine.Forecaster
	recs       *engine.RecommendationEngine
	dispatcher *processor.Dispatcher
	notifier   *events.Notifier
}

func NewStockHandler(cfg *config.Config, ledger *store.Ledger, history *store.History, registry *store.AlertRegistry, forecaster *engine.Forecaster, recs *engine.RecommendationEngine, dispatcher *processor.Dispatcher, notifier *events.Notifier) *StockHandler {
	return &StockHandler{
		cfg:        cfg,
		ledger:     ledger,
		history:    history,
		registry:   registry,
		forecaster: forecaster,
		recs:       recs,
		dispatcher: dispatcher,
		notifier:   notifier,
	}
}

// ========== Event Ingestion ==========

// IngestEvent accepts one stock event and enqueues it for processing.
func (h *StockHandler) IngestEvent(c *gin.Context) {
	var req models.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	ack, ok := h.enqueue(req)
	if !ok {
		respondError(c, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Event intake is closed")
		return
	}
	c.JSON(http.StatusAccepted, models.SuccessResponse{Success: true, Data: ack})
}

// IngestEventBatch accepts a batch of stock events.
func (h *StockHandler) IngestEventBatch(c *gin.Context) {
	var req models.BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	resp := models.BatchIngestResponse{Success: true}
	for _, r := range req.Events {
		if !r.Type.Valid() || r.Quantity <= 0 || r.ProductID == uuid.Nil {
			resp.RejectedCount++
			continue
		}
		ack, ok := h.enqueue(r)
		if !ok {
			resp.RejectedCount++
			continue
		}
		resp.AcceptedCount++
		resp.Acks = append(resp.Acks, ack)
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *StockHandler) enqueue(req models.IngestEventRequest) (models.IngestEventAck, bool) {
	ev := models.StockEvent{
		Type:      req.Type,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Meta:      req.Meta,
		Extra:     req.Extra,
	}
	if req.ID != nil {
		ev.ID = *req.ID
	} else {
		ev.ID = uuid.New()
	}
	if req.Timestamp != nil {
		ev.Timestamp = *req.Timestamp
	} else {
		ev.Timestamp = time.Now().UTC()
	}
	if !h.dispatcher.Enqueue(ev) {
		return models.IngestEventAck{}, false
	}
	return models.IngestEventAck{
		Status:     "accepted",
		EventID:    ev.ID,
		ProductID:  ev.ProductID,
		QueueDepth: h.dispatcher.BacklogSize(),
	}, true
}

// ========== Product Handlers ==========

// CreateProduct provisions a new product in the ledger.
func (h *StockHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	product, err := h.ledger.Create(models.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     req.Category,
		WarehouseID:  req.WarehouseID,
		CurrentStock: req.CurrentStock,
		ReorderPoint: req.ReorderPoint,
		MaxCapacity:  req.MaxCapacity,
		UnitPrice:    req.UnitPrice,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateProduct) {
			respondError(c, http.StatusConflict, "DUPLICATE", err.Error())
			return
		}
		if errors.Is(err, store.ErrInvalidProduct) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, models.ProductResponse{
		Success: true,
		Data:    &product,
		Message: stringPtr("Product created successfully"),
	})
}

// GetProduct retrieves a product by ID
func (h *StockHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
		return
	}
	product, err := h.ledger.Get(id)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: &product})
}

// ListProducts retrieves products with filters and pagination
func (h *StockHandler) ListProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Category:    c.Query("category"),
		WarehouseID: c.Query("warehouseId"),
	}
	page, limit := h.pagination(c)
	items, total := h.ledger.List(filter, limit, (page-1)*limit)
	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    items,
		Pagination: &models.PaginationMeta{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

// ListLowStock returns products at or below their reorder point.
func (h *StockHandler) ListLowStock(c *gin.Context) {
	c.JSON(http.StatusOK, models.ProductListResponse{Success: true, Data: h.ledger.LowStock()})
}

// ListCriticalStock returns products below the critical threshold.
func (h *StockHandler) ListCriticalStock(c *gin.Context) {
	c.JSON(http.StatusOK, models.ProductListResponse{Success: true, Data: h.ledger.CriticalStock()})
}

// GetProductHistory returns a product's processed events.
func (h *StockHandler) GetProductHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
		return
	}
	if _, err := h.ledger.Get(id); err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	c.JSON(http.StatusOK, models.EventListResponse{Success: true, Data: h.history.ByProduct(id, limit)})
}

// ========== Alert Handlers ==========

// ListAlerts retrieves alerts filtered by severity, product and active state.
func (h *StockHandler) ListAlerts(c *gin.Context) {
	filter := store.AlertFilter{}
	if s := c.Query("severity"); s != "" {
		filter.Severity = models.AlertSeverity(s)
	}
	if s := c.Query("productId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
			return
		}
		filter.ProductID = id
	}
	if s := c.Query("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "active must be a boolean")
			return
		}
		filter.Active = &active
	}
	c.JSON(http.StatusOK, models.AlertListResponse{Success: true, Data: h.registry.List(filter)})
}

// GetAlertSummary returns alert counts by status, type and severity.
func (h *StockHandler) GetAlertSummary(c *gin.Context) {
	summary := h.registry.Summary()
	c.JSON(http.StatusOK, models.AlertSummaryResponse{Success: true, Data: &summary})
}

// GetAlert retrieves an alert by ID
func (h *StockHandler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid alert ID")
		return
	}
	alert, err := h.registry.Get(id)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	c.JSON(http.StatusOK, models.AlertResponse{Success: true, Data: &alert})
}

// ResolveAlert resolves an unresolved alert by ID (operator action).
func (h *StockHandler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid alert ID")
		return
	}
	now := time.Now().UTC()
	alert, err := h.registry.Resolve(id, now)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Alert not found")
			return
		}
		respondError(c, http.StatusConflict, "ALREADY_RESOLVED", "Alert is already resolved")
		return
	}
	h.notifier.PublishAlertResolved(alert.ID, now)
	c.JSON(http.StatusOK, models.AlertResponse{
		Success: true,
		Data:    &alert,
		Message: stringPtr("Alert resolved"),
	})
}

// ========== Forecast & Recommendation Handlers ==========

// GetForecasts computes forecasts for one product or all products.
func (h *StockHandler) GetForecasts(c *gin.Context) {
	horizon := h.cfg.ForecastHorizonDays
	if s := c.Query("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 365 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "days must be between 1 and 365")
			return
		}
		horizon = n
	}
	now := time.Now().UTC()

	if s := c.Query("productId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
			return
		}
		product, err := h.ledger.Get(id)
		if err != nil {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
			return
		}
		f := h.forecaster.Forecast(product, h.history.ByProduct(id, 0), now, horizon)
		c.JSON(http.StatusOK, models.ForecastResponse{Success: true, Data: &f})
		return
	}

	products := h.ledger.All()
	forecasts := make([]models.Forecast, 0, len(products))
	for _, p := range products {
		forecasts = append(forecasts, h.forecaster.Forecast(p, h.history.ByProduct(p.ID, 0), now, horizon))
	}
	c.JSON(http.StatusOK, models.ForecastListResponse{Success: true, Data: forecasts})
}

// GetRecommendations returns the cached recommendation batch, optionally
// filtered to one product.
func (h *StockHandler) GetRecommendations(c *gin.Context) {
	if s := c.Query("productId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
			return
		}
		if _, err := h.ledger.Get(id); err != nil {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
			return
		}
		recs := make([]models.Recommendation, 0, 1)
		if rec, ok := h.recs.ForProduct(id); ok {
			recs = append(recs, rec)
		}
		c.JSON(http.StatusOK, models.RecommendationListResponse{Success: true, Data: recs})
		return
	}
	c.JSON(http.StatusOK, models.RecommendationListResponse{Success: true, Data: h.recs.All()})
}

// ========== helpers ==========

func (h *StockHandler) pagination(c *gin.Context) (page, limit int) {
	page = 1
	limit = h.cfg.DefaultPageSize
	if limit < 1 {
		limit = 1
	}
	if s := c.Query("page"); s != "" {
		if p, err := strconv.Atoi(s); err == nil && p > 0 {
			page = p
		}
	}
	if s := c.Query("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= h.cfg.MaxPageSize {
			limit = l
		}
	}
	return page, limit
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

func stringPtr(s string) *string {
	return &s
}
