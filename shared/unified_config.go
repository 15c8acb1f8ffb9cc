package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Dedup    DedupConfig    `json:"dedup"`
	Fetch    FetchConfig    `json:"fetch"`
	Download DownloadConfig `json:"download"`
	Output   OutputConfig   `json:"output"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
}

// DedupConfig holds duplicate-resolution configuration
type DedupConfig struct {
	IPOCodeColumn     string                `json:"ipo_code_column"`
	IPONameColumn     string                `json:"ipo_name_column"`
	IPODateColumn     string                `json:"ipo_date_column"`
	AuctionCodeColumn string                `json:"auction_code_column"`
	AuctionDateColumn string                `json:"auction_date_column"`
	WindowMonths      int                   `json:"window_months"`
	TieBreak          models.TieBreakPolicy `json:"tie_break"`
}

// FetchConfig holds configuration for the auction dataset fetch
type FetchConfig struct {
	AuctionURL         string        `json:"auction_url"`
	AuctionCachePath   string        `json:"auction_cache_path"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	MemoryTTL          time.Duration `json:"memory_ttl"`
}

// DownloadConfig holds configuration for the TPEx browser download
type DownloadConfig struct {
	PageURL        string        `json:"page_url"`
	ButtonSelector string        `json:"button_selector"`
	DownloadDir    string        `json:"download_dir"`
	TargetFileName string        `json:"target_file_name"`
	Timeout        time.Duration `json:"timeout"`
}

// OutputConfig holds file locations written by the pipeline
type OutputConfig struct {
	IPOInputPath   string   `json:"ipo_input_path"`
	DedupOutput    string   `json:"dedup_output"`
	MarkdownOutput string   `json:"markdown_output"`
	BadgeOutput    string   `json:"badge_output"`
	RemarkKeywords []string `json:"remark_keywords"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `json:"url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// DefaultRemarkKeywords mark withdrawn, rejected or delisted applications
var DefaultRemarkKeywords = []string{
	"自撤", "自行撤件", "撤件", "退件", "已下櫃",
	"管理股票", "撤銷上市", "撤銷上櫃", "重新審議", "退回",
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Dedup: DedupConfig{
			IPOCodeColumn:     models.ColumnStockCode,
			IPONameColumn:     models.ColumnCompanyName,
			IPODateColumn:     models.ColumnApplicationDate,
			AuctionCodeColumn: models.ColumnAuctionStockCode,
			AuctionDateColumn: models.ColumnAuctionOpenedDate,
			WindowMonths:      12,
			TieBreak:          models.TieBreakClosestAuction,
		},
		Fetch: FetchConfig{
			AuctionURL:         "https://www.twse.com.tw/rwd/zh/announcement/auction?response=csv",
			AuctionCachePath:   "auction-cache.csv",
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   2 * time.Second,
			MaxRetryAttempts:   3,
			MemoryTTL:          10 * time.Minute,
		},
		Download: DownloadConfig{
			PageURL:        "https://www.tpex.org.tw/zh-tw/mainboard/applying/status/company.html",
			ButtonSelector: "button[data-format='csv-u8']",
			DownloadDir:    ".",
			TargetFileName: "TPEX-IPO-utf8.csv",
			Timeout:        60 * time.Second,
		},
		Output: OutputConfig{
			IPOInputPath:   "TPEX-IPO-utf8.csv",
			DedupOutput:    "TPEX-IPO-dedup.csv",
			MarkdownOutput: "TPEX-IPO.md",
			BadgeOutput:    "badge.json",
			RemarkKeywords: append([]string(nil), DefaultRemarkKeywords...),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			ServiceName: "twipo-dedup",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	applyString := func(target *string, fallback, name string) {
		if strings.TrimSpace(*target) == "" {
			*target = fallback
			logger.Debugf("Applied default %s", name)
		}
	}

	applyString(&c.Dedup.IPOCodeColumn, defaults.Dedup.IPOCodeColumn, "Dedup.IPOCodeColumn")
	applyString(&c.Dedup.IPONameColumn, defaults.Dedup.IPONameColumn, "Dedup.IPONameColumn")
	applyString(&c.Dedup.IPODateColumn, defaults.Dedup.IPODateColumn, "Dedup.IPODateColumn")
	applyString(&c.Dedup.AuctionCodeColumn, defaults.Dedup.AuctionCodeColumn, "Dedup.AuctionCodeColumn")
	applyString(&c.Dedup.AuctionDateColumn, defaults.Dedup.AuctionDateColumn, "Dedup.AuctionDateColumn")

	if c.Dedup.WindowMonths <= 0 {
		c.Dedup.WindowMonths = defaults.Dedup.WindowMonths
		logger.Debug("Applied default Dedup.WindowMonths")
	}

	if !c.Dedup.TieBreak.Valid() {
		if c.Dedup.TieBreak != "" {
			logger.Warnf("Unknown tie-break policy %q, using %s", c.Dedup.TieBreak, defaults.Dedup.TieBreak)
		}
		c.Dedup.TieBreak = defaults.Dedup.TieBreak
	}

	applyString(&c.Fetch.AuctionURL, defaults.Fetch.AuctionURL, "Fetch.AuctionURL")

	if c.Fetch.HTTPRequestTimeout <= 0 {
		c.Fetch.HTTPRequestTimeout = defaults.Fetch.HTTPRequestTimeout
		logger.Debug("Applied default Fetch.HTTPRequestTimeout")
	}

	if c.Fetch.RequestRateLimit < 0 {
		c.Fetch.RequestRateLimit = defaults.Fetch.RequestRateLimit
		logger.Debug("Applied default Fetch.RequestRateLimit")
	}

	if c.Fetch.MaxRetryAttempts < 0 {
		c.Fetch.MaxRetryAttempts = defaults.Fetch.MaxRetryAttempts
		logger.Debug("Applied default Fetch.MaxRetryAttempts")
	}

	if c.Fetch.MemoryTTL < 0 {
		c.Fetch.MemoryTTL = defaults.Fetch.MemoryTTL
		logger.Debug("Applied default Fetch.MemoryTTL")
	}

	applyString(&c.Download.PageURL, defaults.Download.PageURL, "Download.PageURL")
	applyString(&c.Download.ButtonSelector, defaults.Download.ButtonSelector, "Download.ButtonSelector")
	applyString(&c.Download.DownloadDir, defaults.Download.DownloadDir, "Download.DownloadDir")
	applyString(&c.Download.TargetFileName, defaults.Download.TargetFileName, "Download.TargetFileName")

	if c.Download.Timeout <= 0 {
		c.Download.Timeout = defaults.Download.Timeout
		logger.Debug("Applied default Download.Timeout")
	}

	applyString(&c.Output.IPOInputPath, defaults.Output.IPOInputPath, "Output.IPOInputPath")
	applyString(&c.Output.DedupOutput, defaults.Output.DedupOutput, "Output.DedupOutput")

	if c.Output.RemarkKeywords == nil {
		c.Output.RemarkKeywords = defaults.Output.RemarkKeywords
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
	}

	applyString(&c.Logging.Level, defaults.Logging.Level, "Logging.Level")
	applyString(&c.Logging.Format, defaults.Logging.Format, "Logging.Format")
	applyString(&c.Logging.ServiceName, defaults.Logging.ServiceName, "Logging.ServiceName")
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}

// LoadFromFile reads a JSON configuration file over the current values
func (c *UnifiedConfiguration) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewServiceError(ErrorCategoryConfiguration, "CONFIG_READ_FAILED",
			fmt.Sprintf("failed to read configuration file %s", path), "config", "LoadFromFile", false, err)
	}
	return c.LoadFromJSON(data)
}

// ConfigureLogging applies level and format to the global logrus logger
func ConfigureLogging(cfg LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
