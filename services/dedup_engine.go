package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const dedupServiceName = "DeduplicationEngine"

// Column aliases accepted when the configured header is not present.
var (
	stockCodeAliases   = []string{models.ColumnStockCode, models.ColumnAuctionStockCode, "stock_code", "code"}
	companyNameAliases = []string{models.ColumnCompanyName, "證券名稱", "company_name", "name"}
	appDateAliases     = []string{models.ColumnApplicationDate, "application_date"}
	auctionDateAliases = []string{models.ColumnAuctionOpenedDate, "auction_date"}
)

// DiagnosticSink receives one event per resolved duplicate group and a summary
// once the run completes.
type DiagnosticSink interface {
	GroupResolved(event models.ResolutionEvent)
	RunCompleted(result *models.DedupResult)
}

// LogSink writes resolution diagnostics through logrus.
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink creates a sink logging under the engine component.
func NewLogSink() *LogSink {
	return &LogSink{logger: logrus.WithField("component", dedupServiceName)}
}

// GroupResolved logs the decision for one stock code. Ambiguous groups log at warn.
func (s *LogSink) GroupResolved(event models.ResolutionEvent) {
	entry := s.logger.WithFields(logrus.Fields{
		"stock_code":    event.StockCode,
		"company_name":  event.CompanyName,
		"path":          event.Path,
		"kept_rows":     models.RowNumbers(event.Kept),
		"removed_rows":  models.RowNumbers(event.Removed),
		"evidence":      len(event.Evidence),
		"skipped_pairs": event.SkippedPairs,
	})

	if event.Ambiguous {
		entry = entry.WithField("tied_rows", models.RowNumbers(event.Tied))
		entry.Warn("Ambiguous duplicate group resolved by tie-break")
	} else {
		entry.Info("Resolved duplicate group")
	}

	for _, rationale := range event.Records {
		date := "null"
		if rationale.ApplicationDate != nil {
			date = rationale.ApplicationDate.Format("2006-01-02")
		}
		entry.WithFields(logrus.Fields{
			"row":              rationale.Row + 1,
			"application_date": date,
			"keep":             rationale.Keep,
		}).Debug(rationale.Reason)
	}
}

// RunCompleted logs the run summary.
func (s *LogSink) RunCompleted(result *models.DedupResult) {
	s.logger.WithFields(logrus.Fields{
		"run_id":                result.RunID,
		"input_rows":            result.InputRows,
		"output_rows":           result.OutputRows,
		"duplicate_groups":      result.DuplicateGroups,
		"removed":               result.Removed,
		"ambiguous_groups":      result.AmbiguousGroups,
		"ipo_date_failures":     result.IPODateFailures,
		"auction_date_failures": result.AuctionDateFailures,
		"tie_break":             result.TieBreak,
		"duration":              result.Duration,
	}).Info("Completed duplicate resolution")
}

// CollectingSink keeps every event in memory.
type CollectingSink struct {
	Events []models.ResolutionEvent
	Result *models.DedupResult
}

func (s *CollectingSink) GroupResolved(event models.ResolutionEvent) {
	s.Events = append(s.Events, event)
}

func (s *CollectingSink) RunCompleted(result *models.DedupResult) {
	s.Result = result
}

// DeduplicationEngine resolves duplicate stock codes in an IPO extract against
// an auction dataset.
type DeduplicationEngine struct {
	config         shared.DedupConfig
	policy         *ResolutionPolicy
	sink           DiagnosticSink
	serviceMetrics *shared.ServiceMetrics
}

// NewDeduplicationEngine creates a new engine. A nil sink logs through logrus.
func NewDeduplicationEngine(config shared.DedupConfig, sink DiagnosticSink) *DeduplicationEngine {
	if config.WindowMonths <= 0 {
		config.WindowMonths = 12
	}
	if sink == nil {
		sink = NewLogSink()
	}

	policy := NewResolutionPolicy(config.TieBreak)
	config.TieBreak = policy.TieBreak()

	return &DeduplicationEngine{
		config:         config,
		policy:         policy,
		sink:           sink,
		serviceMetrics: shared.NewServiceMetrics(dedupServiceName),
	}
}

// GetMetrics returns the engine metrics.
func (e *DeduplicationEngine) GetMetrics() *shared.ServiceMetrics {
	return e.serviceMetrics
}

// Config returns the effective configuration.
func (e *DeduplicationEngine) Config() shared.DedupConfig {
	return e.config
}

// Resolve deduplicates the IPO table. The auction table must be present; an
// empty auction table sends every group down the newest-application fallback.
// Neither input is modified.
func (e *DeduplicationEngine) Resolve(ipo *models.Table, auctions *models.Table) (*models.DedupResult, error) {
	startedAt := time.Now()

	result, err := e.resolve(ipo, auctions, startedAt)
	e.serviceMetrics.RecordRequest(err == nil, time.Since(startedAt))
	if err != nil {
		return nil, err
	}

	e.serviceMetrics.IncrementCustomCounter("runs")
	e.serviceMetrics.AddToCustomCounter("duplicate_groups", int64(result.DuplicateGroups))
	e.serviceMetrics.AddToCustomCounter("records_removed", int64(result.Removed))
	e.serviceMetrics.AddToCustomCounter("date_parse_failures", int64(result.IPODateFailures+result.AuctionDateFailures))
	e.serviceMetrics.AddToCustomCounter("ambiguous_ties", int64(result.AmbiguousGroups))
	e.serviceMetrics.SetCustomMetric("last_run_id", result.RunID.String())

	e.sink.RunCompleted(result)
	return result, nil
}

func (e *DeduplicationEngine) resolve(ipo *models.Table, auctions *models.Table, startedAt time.Time) (*models.DedupResult, error) {
	if ipo == nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "IPO_INPUT_MISSING",
			"IPO table is required", dedupServiceName, "Resolve", false, nil)
	}
	if auctions == nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryResource, "AUCTION_INPUT_MISSING",
			"auction table is unavailable", dedupServiceName, "Resolve", false, nil)
	}

	records, ipoFailures, err := e.ipoRecords(ipo)
	if err != nil {
		return nil, err
	}

	auctionRecords, auctionFailures, err := e.auctionRecords(auctions)
	if err != nil {
		return nil, err
	}

	matcher := NewAuctionMatcher(auctionRecords, e.config.WindowMonths)
	groups := GroupDuplicates(records)
	decisions := make(models.Decisions)

	result := &models.DedupResult{
		RunID:               uuid.New(),
		StartedAt:           startedAt,
		TieBreak:            e.config.TieBreak,
		Decisions:           decisions,
		InputRows:           ipo.Len(),
		DuplicateGroups:     len(groups),
		IPODateFailures:     ipoFailures,
		AuctionDateFailures: auctionFailures,
	}

	for _, code := range SortedGroupCodes(groups) {
		group := groups[code]
		evidence, skipped := matcher.Match(group)
		event := e.policy.Resolve(group, evidence, skipped)
		e.policy.Apply(event, decisions)

		if event.Ambiguous {
			result.AmbiguousGroups++
		}
		result.Events = append(result.Events, event)
		e.sink.GroupResolved(event)
	}

	result.Output, result.Removed = AssembleOutput(ipo, decisions)
	result.OutputRows = result.Output.Len()
	result.Duration = time.Since(startedAt)

	return result, nil
}

func (e *DeduplicationEngine) ipoRecords(table *models.Table) ([]models.IPORecord, int, error) {
	codeColumn := table.ColumnIndex(append([]string{e.config.IPOCodeColumn}, stockCodeAliases...)...)
	dateColumn := table.ColumnIndex(append([]string{e.config.IPODateColumn}, appDateAliases...)...)
	nameColumn := table.ColumnIndex(append([]string{e.config.IPONameColumn}, companyNameAliases...)...)

	if codeColumn < 0 || dateColumn < 0 {
		return nil, 0, missingColumnsError("IPO", table.Header, e.config.IPOCodeColumn, e.config.IPODateColumn)
	}

	dates, failures := NormalizeColumn(table, dateColumn)
	records := make([]models.IPORecord, table.Len())
	for row := range table.Rows {
		records[row] = models.IPORecord{
			Row:             row,
			StockCode:       table.Cell(row, codeColumn),
			CompanyName:     table.Cell(row, nameColumn),
			ApplicationDate: dates[row],
			Fields:          table.Rows[row],
		}
	}
	return records, failures, nil
}

func (e *DeduplicationEngine) auctionRecords(table *models.Table) ([]models.AuctionRecord, int, error) {
	if len(table.Header) == 0 && table.Len() == 0 {
		return nil, 0, nil
	}

	codeColumn := table.ColumnIndex(append([]string{e.config.AuctionCodeColumn}, stockCodeAliases...)...)
	dateColumn := table.ColumnIndex(append([]string{e.config.AuctionDateColumn}, auctionDateAliases...)...)

	if codeColumn < 0 || dateColumn < 0 {
		return nil, 0, missingColumnsError("auction", table.Header, e.config.AuctionCodeColumn, e.config.AuctionDateColumn)
	}

	dates, failures := NormalizeColumn(table, dateColumn)
	records := make([]models.AuctionRecord, table.Len())
	for row := range table.Rows {
		records[row] = models.AuctionRecord{
			Row:         row,
			StockCode:   table.Cell(row, codeColumn),
			AuctionDate: dates[row],
		}
	}
	return records, failures, nil
}

func missingColumnsError(dataset string, header []string, columns ...string) error {
	return shared.NewServiceError(shared.ErrorCategoryValidation, "MISSING_COLUMNS",
		fmt.Sprintf("%s table must contain columns %s", dataset, strings.Join(columns, ", ")),
		dedupServiceName, "Resolve", false, nil).
		WithDetails(map[string]interface{}{"header": header})
}
