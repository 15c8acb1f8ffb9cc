package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/shared"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var DB *sql.DB

//go:embed schema.sql
var embeddedSchema string

// requiredColumns lists the columns the run store writes, per table.
var requiredColumns = map[string][]string{
	"dedup_runs": {
		"id", "started_at", "duration_ms", "tie_break", "input_rows", "output_rows",
		"duplicate_groups", "removed", "ambiguous_groups", "ipo_date_failures",
		"auction_date_failures", "auction_origin",
	},
	"dedup_decisions": {
		"run_id", "stock_code", "company_name", "path", "ambiguous",
		"kept_rows", "removed_rows", "tied_rows", "reason",
	},
}

// ConnectWithConfig establishes database connection with custom configuration
func ConnectWithConfig(dbURL string, config *shared.DatabaseConfig) error {
	db, err := Open(dbURL, config)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open creates a pooled connection and verifies it with a ping.
func Open(dbURL string, config *shared.DatabaseConfig) (*sql.DB, error) {
	if strings.TrimSpace(dbURL) == "" {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "DATABASE_URL_MISSING",
			"database url is empty", "Database", "Open", false, nil)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, shared.NewServiceError(shared.ErrorCategoryDatabase, "DATABASE_PING_FAILED",
			"failed to ping database", "Database", "Open", true, err)
	}

	logrus.WithFields(logrus.Fields{
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database successfully")

	return db, nil
}

func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		logrus.Info("Database connection closed")
	}
}

// HealthCheck pings the database and logs pool statistics
func HealthCheck(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := DB.Stats()
	logrus.WithFields(logrus.Fields{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
	}).Debug("Database connection pool health check")

	return nil
}

// Migrate applies the embedded schema to db.
func Migrate(db *sql.DB) error {
	return applySchema(db, embeddedSchema)
}

func applySchema(db *sql.DB, content string) error {
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	failed := 0
	for _, stmt := range parseSQLStatements(content) {
		if _, err := db.Exec(stmt); err != nil {
			// Statements are idempotent, continue past failures
			failed++
			logrus.Warnf("Migration statement failed (continuing): %v", err)
		}
	}

	logrus.WithField("failed_statements", failed).Info("Database migration completed")
	return nil
}

// parseSQLStatements splits SQL content into statements, dropping comment lines
func parseSQLStatements(content string) []string {
	var statements []string
	var currentStatement strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if currentStatement.Len() > 0 {
			currentStatement.WriteString(" ")
		}
		currentStatement.WriteString(line)

		if strings.HasSuffix(line, ";") {
			if stmt := strings.TrimSpace(strings.TrimSuffix(currentStatement.String(), ";")); stmt != "" {
				statements = append(statements, stmt)
			}
			currentStatement.Reset()
		}
	}

	if stmt := strings.TrimSpace(currentStatement.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// SchemaReport lists what the schema validator found missing.
type SchemaReport struct {
	MissingTables  []string            `json:"missing_tables,omitempty"`
	MissingColumns map[string][]string `json:"missing_columns,omitempty"`
}

// Valid reports whether nothing is missing.
func (r *SchemaReport) Valid() bool {
	return len(r.MissingTables) == 0 && len(r.MissingColumns) == 0
}

// ValidateSchema checks that the run-history tables carry every column the
// run store writes.
func ValidateSchema(ctx context.Context, db *sql.DB) (*SchemaReport, error) {
	report := &SchemaReport{MissingColumns: make(map[string][]string)}

	for table, columns := range requiredColumns {
		existing, err := tableColumns(ctx, db, table)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		if len(existing) == 0 {
			report.MissingTables = append(report.MissingTables, table)
			continue
		}
		for _, column := range columns {
			if !existing[column] {
				report.MissingColumns[table] = append(report.MissingColumns[table], column)
			}
		}
	}

	if !report.Valid() {
		logrus.WithFields(logrus.Fields{
			"missing_tables":  report.MissingTables,
			"missing_columns": report.MissingColumns,
		}).Warn("Schema validation found issues")
	}
	return report, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
