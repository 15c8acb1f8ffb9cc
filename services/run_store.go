package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const runStoreName = "RunStore"

// DecisionRecord is one persisted group decision. Row fields are 1-based data
// row numbers.
type DecisionRecord struct {
	StockCode   string                `json:"stock_code"`
	CompanyName string                `json:"company_name"`
	Path        models.ResolutionPath `json:"path"`
	Ambiguous   bool                  `json:"ambiguous"`
	KeptRows    []int64               `json:"kept_rows"`
	RemovedRows []int64               `json:"removed_rows"`
	TiedRows    []int64               `json:"tied_rows,omitempty"`
	Reason      string                `json:"reason"`
}

// RunStore persists resolution runs and their per-group decisions in PostgreSQL.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new run store
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun writes the run summary and every group decision in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, result *models.DedupResult, auctionOrigin string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "TX_BEGIN_FAILED", runStoreName, "SaveRun", true)
	}
	defer tx.Rollback()

	summary := result.Summary(auctionOrigin)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO dedup_runs (
			id, started_at, duration_ms, tie_break, input_rows, output_rows,
			duplicate_groups, removed, ambiguous_groups, ipo_date_failures,
			auction_date_failures, auction_origin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		summary.ID, summary.StartedAt, summary.Duration.Milliseconds(), string(summary.TieBreak),
		summary.InputRows, summary.OutputRows, summary.DuplicateGroups, summary.Removed,
		summary.AmbiguousGroups, summary.IPODateFailures, summary.AuctionDateFailures,
		nullableString(auctionOrigin),
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "RUN_INSERT_FAILED", runStoreName, "SaveRun", false)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dedup_decisions (
			run_id, stock_code, company_name, path, ambiguous,
			kept_rows, removed_rows, tied_rows, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "DECISION_PREPARE_FAILED", runStoreName, "SaveRun", false)
	}
	defer stmt.Close()

	for _, event := range result.Events {
		_, err = stmt.ExecContext(ctx,
			summary.ID, event.StockCode, event.CompanyName, string(event.Path), event.Ambiguous,
			pq.Array(rowNumbers(event.Kept)), pq.Array(rowNumbers(event.Removed)), pq.Array(rowNumbers(event.Tied)),
			decisionReason(event),
		)
		if err != nil {
			return shared.WrapError(err, shared.ErrorCategoryDatabase, "DECISION_INSERT_FAILED", runStoreName, "SaveRun", false)
		}
	}

	if err := tx.Commit(); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "TX_COMMIT_FAILED", runStoreName, "SaveRun", true)
	}

	logrus.WithFields(logrus.Fields{
		"component": runStoreName,
		"run_id":    summary.ID,
		"decisions": len(result.Events),
	}).Info("Persisted resolution run")
	return nil
}

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, tie_break, input_rows, output_rows,
		       duplicate_groups, removed, ambiguous_groups, ipo_date_failures,
		       auction_date_failures, COALESCE(auction_origin, '')
		FROM dedup_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "RUN_QUERY_FAILED", runStoreName, "ListRuns", true)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var run models.RunSummary
		var durationMillis int64
		var tieBreak string
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMillis, &tieBreak, &run.InputRows, &run.OutputRows,
			&run.DuplicateGroups, &run.Removed, &run.AmbiguousGroups, &run.IPODateFailures,
			&run.AuctionDateFailures, &run.AuctionOrigin); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMillis) * time.Millisecond
		run.TieBreak = models.TieBreakPolicy(tieBreak)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListDecisions returns the decisions of one run ordered by stock code.
func (s *RunStore) ListDecisions(ctx context.Context, runID uuid.UUID) ([]DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stock_code, COALESCE(company_name, ''), path, ambiguous,
		       kept_rows, removed_rows, tied_rows, COALESCE(reason, '')
		FROM dedup_decisions
		WHERE run_id = $1
		ORDER BY stock_code`, runID)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "DECISION_QUERY_FAILED", runStoreName, "ListDecisions", true)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		var decision DecisionRecord
		var path string
		if err := rows.Scan(&decision.StockCode, &decision.CompanyName, &path, &decision.Ambiguous,
			pq.Array(&decision.KeptRows), pq.Array(&decision.RemovedRows), pq.Array(&decision.TiedRows),
			&decision.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decision.Path = models.ResolutionPath(path)
		decisions = append(decisions, decision)
	}
	return decisions, rows.Err()
}

// rowNumbers stores rows with the same 1-based numbering the logs use.
func rowNumbers(indexes []int) []int64 {
	numbers := models.RowNumbers(indexes)
	converted := make([]int64, len(numbers))
	for i, number := range numbers {
		converted[i] = int64(number)
	}
	return converted
}

func decisionReason(event models.ResolutionEvent) string {
	var reasons []string
	for _, record := range event.Records {
		if record.Keep {
			reasons = append(reasons, record.Reason)
		}
	}
	return strings.Join(reasons, "; ")
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
