package handlers

import (
	"context"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RunHistory reads persisted runs.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
	ListDecisions(ctx context.Context, runID uuid.UUID) ([]services.DecisionRecord, error)
}

type RunsHandler struct {
	History RunHistory
}

func NewRunsHandler(history RunHistory) *RunsHandler {
	return &RunsHandler{History: history}
}

func (h *RunsHandler) GetRuns(c *fiber.Ctx) error {
	if h.History == nil {
		return runHistoryUnavailable(c)
	}

	runs, err := h.History.ListRuns(c.Context(), c.QueryInt("limit", 20))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    runs,
		"count":   len(runs),
	})
}

func (h *RunsHandler) GetRunDecisions(c *fiber.Ctx) error {
	if h.History == nil {
		return runHistoryUnavailable(c)
	}

	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid run id",
		})
	}

	decisions, err := h.History.ListDecisions(c.Context(), runID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    decisions,
		"count":   len(decisions),
	})
}

func runHistoryUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"error":   "Run history requires DATABASE_URL",
	})
}
