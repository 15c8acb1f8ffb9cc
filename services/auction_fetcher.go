package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const auctionFetcherName = "AuctionFetcher"

// Auction data origins reported by Fetch.
const (
	AuctionOriginNetwork = "network"
	AuctionOriginCache   = "cache"
	AuctionOriginFile    = "file"
)

// AuctionFetchResult is a materialized auction table and where it came from.
type AuctionFetchResult struct {
	Table  models.Table `json:"-"`
	Origin string       `json:"origin"`
	Source string       `json:"source"`
	Rows   int          `json:"rows"`
}

// AuctionFetcher downloads the auction dataset, keeping a local cache copy to
// fall back on when the network is unavailable.
type AuctionFetcher struct {
	config         shared.FetchConfig
	httpFactory    *shared.HTTPClientFactory
	rateLimiter    *shared.HTTPRequestRateLimiter
	serviceMetrics *shared.ServiceMetrics
	logger         *logrus.Entry
}

// NewAuctionFetcher creates a new auction fetcher
func NewAuctionFetcher(config shared.FetchConfig) *AuctionFetcher {
	return &AuctionFetcher{
		config:         config,
		httpFactory:    shared.NewHTTPClientFactory(config.HTTPRequestTimeout),
		rateLimiter:    shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		serviceMetrics: shared.NewServiceMetrics(auctionFetcherName),
		logger:         logrus.WithField("component", auctionFetcherName),
	}
}

// GetMetrics returns the fetcher metrics.
func (f *AuctionFetcher) GetMetrics() *shared.ServiceMetrics {
	return f.serviceMetrics
}

// Load resolves an auction source: http(s) URLs are fetched, anything else is
// read as a local CSV file. An empty source fetches the configured URL.
func (f *AuctionFetcher) Load(ctx context.Context, source string) (*AuctionFetchResult, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return f.Fetch(ctx)
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.FetchURL(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryResource, "AUCTION_FILE_UNREADABLE",
			fmt.Sprintf("cannot read auction file %s", source), auctionFetcherName, "Load", false, err)
	}

	table, err := ParseAuctionBody(data, "")
	if err != nil {
		return nil, err
	}
	return &AuctionFetchResult{Table: table, Origin: AuctionOriginFile, Source: source, Rows: table.Len()}, nil
}

// Fetch downloads the configured auction URL.
func (f *AuctionFetcher) Fetch(ctx context.Context) (*AuctionFetchResult, error) {
	return f.FetchURL(ctx, f.config.AuctionURL)
}

// FetchURL downloads the auction dataset with retries. On success the raw
// response is written to the cache file; on failure the cache file is used.
func (f *AuctionFetcher) FetchURL(ctx context.Context, url string) (*AuctionFetchResult, error) {
	body, contentType, err := f.download(ctx, url)
	if err == nil {
		var table models.Table
		table, err = ParseAuctionBody(body, contentType)
		if err == nil {
			f.writeCache(body)
			f.serviceMetrics.IncrementCustomCounter("network_fetches")
			f.logger.WithFields(logrus.Fields{"url": url, "rows": table.Len()}).Info("Fetched auction dataset")
			return &AuctionFetchResult{Table: table, Origin: AuctionOriginNetwork, Source: url, Rows: table.Len()}, nil
		}
	}

	f.logger.WithError(err).WithField("url", url).Warn("Auction fetch failed, trying cache")

	cached, cacheErr := f.readCache()
	if cacheErr != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, "AUCTION_UNAVAILABLE",
			"auction dataset unavailable from network and cache", auctionFetcherName, "FetchURL", true, err).
			WithDetails(map[string]interface{}{"url": url, "cache_error": cacheErr.Error()})
	}

	f.serviceMetrics.IncrementCustomCounter("cache_fallbacks")
	return &AuctionFetchResult{Table: cached, Origin: AuctionOriginCache, Source: f.config.AuctionCachePath, Rows: cached.Len()}, nil
}

func (f *AuctionFetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	var body []byte
	var contentType string

	err := shared.RetryWithBackoff(ctx, f.config.MaxRetryAttempts, func(attempt int) error {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		startTime := time.Now()
		collector := colly.NewCollector(colly.AllowURLRevisit())
		collector.SetClient(f.httpFactory.Client(f.config.HTTPRequestTimeout))

		collector.OnRequest(func(r *colly.Request) {
			shared.SetBrowserLikeHeaders(*r.Headers, "text/csv,text/html;q=0.9,*/*;q=0.8")
			f.logger.WithFields(logrus.Fields{"url": r.URL.String(), "attempt": attempt + 1}).Debug("Requesting auction dataset")
		})

		collector.OnResponse(func(r *colly.Response) {
			body = r.Body
			contentType = r.Headers.Get("Content-Type")
		})

		var responseErr error
		collector.OnError(func(r *colly.Response, err error) {
			responseErr = err
			f.logger.WithFields(logrus.Fields{"status_code": r.StatusCode, "attempt": attempt + 1}).WithError(err).Debug("Auction request failed")
		})

		err := collector.Visit(url)
		f.serviceMetrics.RecordRequest(err == nil && responseErr == nil, time.Since(startTime))
		if err != nil {
			return err
		}
		if responseErr != nil {
			return responseErr
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return shared.NewServiceError(shared.ErrorCategoryNetwork, "EMPTY_RESPONSE",
				"auction response is empty", auctionFetcherName, "download", true, nil)
		}
		return nil
	})

	return body, contentType, err
}

func (f *AuctionFetcher) writeCache(body []byte) {
	if f.config.AuctionCachePath == "" {
		return
	}
	if dir := filepath.Dir(f.config.AuctionCachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			f.logger.WithError(err).Warn("Failed to create cache directory")
			return
		}
	}
	if err := os.WriteFile(f.config.AuctionCachePath, body, 0o644); err != nil {
		f.logger.WithError(err).Warn("Failed to write auction cache")
	}
}

func (f *AuctionFetcher) readCache() (models.Table, error) {
	if f.config.AuctionCachePath == "" {
		return models.Table{}, fmt.Errorf("no auction cache configured")
	}
	data, err := os.ReadFile(f.config.AuctionCachePath)
	if err != nil {
		return models.Table{}, err
	}
	return ParseAuctionBody(data, "")
}

// ParseAuctionBody parses an auction dataset served either as CSV (with title
// and footnote lines around the table) or as an HTML page holding a table.
func ParseAuctionBody(body []byte, contentType string) (models.Table, error) {
	trimmed := bytes.TrimSpace(body)
	if strings.Contains(strings.ToLower(contentType), "html") || bytes.HasPrefix(trimmed, []byte("<")) {
		return parseAuctionHTML(trimmed)
	}

	records, err := ReadRecords(bytes.NewReader(body), EncodingAuto)
	if err != nil {
		return models.Table{}, err
	}
	return locateAuctionTable(records)
}

func parseAuctionHTML(body []byte) (models.Table, error) {
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Table{}, shared.NewServiceError(shared.ErrorCategoryProcessing, "HTML_PARSE_FAILED",
			"cannot parse auction html", auctionFetcherName, "parseAuctionHTML", false, err)
	}

	var records [][]string
	document.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		records = records[:0]
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				records = append(records, cells)
			}
		})
		_, found := findAuctionHeader(records)
		return !found
	})

	return locateAuctionTable(records)
}

// locateAuctionTable finds the header record naming the stock code column and
// keeps the data rows after it.
func locateAuctionTable(records [][]string) (models.Table, error) {
	headerIndex, found := findAuctionHeader(records)
	if !found {
		return models.Table{}, shared.NewServiceError(shared.ErrorCategoryValidation, "AUCTION_HEADER_MISSING",
			"auction data has no stock code column", auctionFetcherName, "locateAuctionTable", false, nil)
	}

	header := cleanAuctionCells(records[headerIndex])
	table := models.Table{Header: header, Rows: make([][]string, 0, len(records)-headerIndex)}
	for _, record := range records[headerIndex+1:] {
		if len(record)*2 < len(header) {
			continue
		}
		table.Rows = append(table.Rows, cleanAuctionCells(record))
	}
	return table, nil
}

func findAuctionHeader(records [][]string) (int, bool) {
	probe := models.Table{}
	for i, record := range records {
		probe.Header = cleanAuctionCells(record)
		if probe.ColumnIndex(stockCodeAliases...) >= 0 {
			return i, true
		}
	}
	return -1, false
}

// cleanAuctionCells strips the ="..." wrapping spreadsheet exports use to keep
// leading zeros.
func cleanAuctionCells(record []string) []string {
	cleaned := make([]string, len(record))
	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		cell = strings.TrimPrefix(cell, "=")
		cleaned[i] = strings.TrimSpace(strings.Trim(cell, `"`))
	}
	return cleaned
}
