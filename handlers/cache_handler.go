package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// AuctionCacheControl is the in-memory auction cache as seen by the API.
type AuctionCacheControl interface {
	Stats() map[string]interface{}
	Invalidate()
}

type CacheHandler struct {
	Cache AuctionCacheControl
}

func NewCacheHandler(cache AuctionCacheControl) *CacheHandler {
	return &CacheHandler{Cache: cache}
}

func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Cache.Stats(),
	})
}

// InvalidateCache forces the next dedup request to refetch auctions.
func (h *CacheHandler) InvalidateCache(c *fiber.Ctx) error {
	h.Cache.Invalidate()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Auction cache cleared",
	})
}
