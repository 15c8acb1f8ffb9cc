package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	ConfigFile  string
	Unified     *shared.UnifiedConfiguration
}

// LoadConfig reads .env and the process environment into a validated configuration
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ConfigFile:  getEnv("CONFIG_FILE", ""),
		Unified:     shared.NewDefaultUnifiedConfiguration(),
	}

	if cfg.ConfigFile != "" {
		if err := cfg.Unified.LoadFromFile(cfg.ConfigFile); err != nil {
			logrus.WithError(err).Warn("Ignoring configuration file")
		}
	}

	applyEnvironment(cfg.Unified)
	cfg.Unified.Database.URL = cfg.DatabaseURL
	cfg.Unified.ValidateAndApplyDefaults()

	return cfg
}

func applyEnvironment(u *shared.UnifiedConfiguration) {
	overrideString(&u.Dedup.IPOCodeColumn, "IPO_CODE_COLUMN")
	overrideString(&u.Dedup.IPONameColumn, "IPO_NAME_COLUMN")
	overrideString(&u.Dedup.IPODateColumn, "IPO_DATE_COLUMN")
	overrideString(&u.Dedup.AuctionCodeColumn, "AUCTION_CODE_COLUMN")
	overrideString(&u.Dedup.AuctionDateColumn, "AUCTION_DATE_COLUMN")
	overrideInt(&u.Dedup.WindowMonths, "AUCTION_WINDOW_MONTHS")
	if value, ok := os.LookupEnv("TIE_BREAK_POLICY"); ok {
		u.Dedup.TieBreak = models.TieBreakPolicy(strings.TrimSpace(value))
	}

	overrideString(&u.Fetch.AuctionURL, "AUCTION_URL")
	overrideString(&u.Fetch.AuctionCachePath, "AUCTION_CACHE_PATH")
	overrideDuration(&u.Fetch.HTTPRequestTimeout, "HTTP_TIMEOUT")
	overrideDuration(&u.Fetch.RequestRateLimit, "REQUEST_RATE_LIMIT")
	overrideInt(&u.Fetch.MaxRetryAttempts, "MAX_RETRIES")
	overrideDuration(&u.Fetch.MemoryTTL, "AUCTION_MEMORY_TTL")

	overrideString(&u.Download.PageURL, "TPEX_URL")
	overrideString(&u.Download.DownloadDir, "DOWNLOAD_DIR")
	overrideDuration(&u.Download.Timeout, "DOWNLOAD_TIMEOUT")

	overrideString(&u.Output.IPOInputPath, "IPO_INPUT_PATH")
	overrideString(&u.Output.DedupOutput, "DEDUP_OUTPUT")
	overrideString(&u.Output.MarkdownOutput, "MARKDOWN_OUTPUT")
	overrideString(&u.Output.BadgeOutput, "BADGE_OUTPUT")

	overrideString(&u.Logging.Level, "LOG_LEVEL")
	overrideString(&u.Logging.Format, "LOG_FORMAT")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func overrideString(target *string, key string) {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, key string) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, keeping %d", key, value, *target)
		return
	}
	*target = parsed
}

func overrideDuration(target *time.Duration, key string) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, keeping %v", key, value, *target)
		return
	}
	*target = parsed
}
