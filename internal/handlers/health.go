package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stock-monitor-service",
	})
}

// ExtendedHealthCheck returns detailed health status including pipeline
// counters.
func (h *StockHandler) ExtendedHealthCheck(c *gin.Context) {
	enqueued, completed, backlog := h.dispatcher.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stock-monitor-service",
		"pipeline": gin.H{
			"workers":   h.dispatcher.WorkerCount(),
			"enqueued":  enqueued,
			"completed": completed,
			"backlog":   backlog,
		},
		"stores": gin.H{
			"products": h.ledger.Count(),
			"events":   h.history.Len(),
		},
	})
}
