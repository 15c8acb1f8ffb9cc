package handlers

import (
	"time"

	"github.com/fenilmodi00/twipo-dedup/database"
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the health check and the v1 API on app.
func RegisterRoutes(app *fiber.App, dedup *DedupHandler, runs *RunsHandler, metrics *MetricsHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		}
		if database.DB != nil {
			if err := database.HealthCheck(c.UserContext()); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
			status["database"] = "ok"
		}
		return c.JSON(status)
	})

	api := app.Group("/api/v1")
	api.Post("/dedup", dedup.Dedup)
	api.Get("/runs", runs.GetRuns)
	api.Get("/runs/:id/decisions", runs.GetRunDecisions)
	api.Get("/metrics", metrics.GetMetrics)
	api.Delete("/metrics", metrics.ResetMetrics)
}

// RegisterCacheRoutes mounts the auction cache endpoints.
func RegisterCacheRoutes(app *fiber.App, cache *CacheHandler) {
	api := app.Group("/api/v1")
	api.Get("/auctions/cache", cache.GetCacheStats)
	api.Delete("/auctions/cache", cache.InvalidateCache)
}
