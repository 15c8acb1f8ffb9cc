package config

import (
	"testing"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 12, cfg.Unified.Dedup.WindowMonths)
	assert.Equal(t, models.TieBreakClosestAuction, cfg.Unified.Dedup.TieBreak)
	assert.Equal(t, models.ColumnStockCode, cfg.Unified.Dedup.IPOCodeColumn)
	assert.Empty(t, cfg.Unified.Database.URL)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("AUCTION_WINDOW_MONTHS", "18")
	t.Setenv("TIE_BREAK_POLICY", "keep-all")
	t.Setenv("IPO_CODE_COLUMN", "code")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("DATABASE_URL", "postgres://localhost/twipo?sslmode=disable")

	cfg := LoadConfig()

	assert.Equal(t, 18, cfg.Unified.Dedup.WindowMonths)
	assert.Equal(t, models.TieBreakKeepAll, cfg.Unified.Dedup.TieBreak)
	assert.Equal(t, "code", cfg.Unified.Dedup.IPOCodeColumn)
	assert.Equal(t, 5*time.Second, cfg.Unified.Fetch.HTTPRequestTimeout)
	assert.Equal(t, "postgres://localhost/twipo?sslmode=disable", cfg.Unified.Database.URL)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUCTION_WINDOW_MONTHS", "twelve")
	t.Setenv("TIE_BREAK_POLICY", "coin-flip")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 12, cfg.Unified.Dedup.WindowMonths)
	assert.Equal(t, models.TieBreakClosestAuction, cfg.Unified.Dedup.TieBreak)
	assert.Equal(t, 30*time.Second, cfg.Unified.Fetch.HTTPRequestTimeout)
}
