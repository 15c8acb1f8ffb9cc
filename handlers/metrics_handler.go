package handlers

import (
	"database/sql"

	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/gofiber/fiber/v2"
)

type MetricsHandler struct {
	DB      *sql.DB
	Metrics []*shared.ServiceMetrics
}

func NewMetricsHandler(db *sql.DB, metrics ...*shared.ServiceMetrics) *MetricsHandler {
	return &MetricsHandler{DB: db, Metrics: metrics}
}

// GetMetrics returns a snapshot of every registered service's metrics
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	services := make(map[string]shared.MetricsSnapshot, len(h.Metrics))
	for _, metrics := range h.Metrics {
		snapshot := metrics.GetSnapshot()
		services[snapshot.ServiceName] = snapshot
	}

	data := fiber.Map{"services": services}

	if h.DB != nil {
		dbStats := h.DB.Stats()
		data["database_stats"] = fiber.Map{
			"open_connections": dbStats.OpenConnections,
			"in_use":           dbStats.InUse,
			"idle":             dbStats.Idle,
			"wait_count":       dbStats.WaitCount,
			"wait_duration_ms": dbStats.WaitDuration.Milliseconds(),
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// ResetMetrics zeroes every registered service's metrics
func (h *MetricsHandler) ResetMetrics(c *fiber.Ctx) error {
	for _, metrics := range h.Metrics {
		metrics.Reset()
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Metrics reset",
	})
}
