package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/sirupsen/logrus"
)

// applyListingMinColumns is the shortest data row of the TWSE apply-listing export.
const applyListingMinColumns = 13

// ConversionStats summarizes a format conversion.
type ConversionStats struct {
	RowsRead       int `json:"rows_read"`
	RowsWritten    int `json:"rows_written"`
	RowsSkipped    int `json:"rows_skipped"`
	DateFailures   int `json:"date_failures"`
	CellsRewritten int `json:"cells_rewritten"`
}

// CleanNumericField strips quotes and thousands separators.
func CleanNumericField(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, `"`, "")
	return strings.ReplaceAll(value, ",", "")
}

// ConvertROCDate turns a Minguo date such as 113/01/15 into 20240115. Blank input
// yields "".
func ConvertROCDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid roc date %q", value)
	}

	numbers := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return "", fmt.Errorf("invalid roc date %q: %w", value, err)
		}
		numbers[i] = n
	}

	converted := time.Date(numbers[0]+rocYearOffset, time.Month(numbers[1]), numbers[2], 0, 0, 0, 0, time.UTC)
	if converted.Month() != time.Month(numbers[1]) || converted.Day() != numbers[2] {
		return "", fmt.Errorf("invalid roc date %q: day out of range", value)
	}
	return converted.Format("20060102"), nil
}

// ConvertApplyListing converts the raw TWSE apply-listing export into the
// canonical twelve-column IPO table. The first record is metadata; short rows
// and repeated header rows are skipped.
func ConvertApplyListing(records [][]string) (models.Table, ConversionStats) {
	logger := logrus.WithField("component", "FormatNormalizer")
	table := models.Table{Header: append([]string(nil), models.IPOHeader...)}
	var stats ConversionStats

	convert := func(value string, line int) string {
		converted, err := ConvertROCDate(value)
		if err != nil {
			stats.DateFailures++
			logger.WithFields(logrus.Fields{"line": line, "value": value}).Warn("Could not convert date")
		}
		return converted
	}

	for line, row := range records {
		stats.RowsRead++
		if line == 0 || len(row) < applyListingMinColumns {
			stats.RowsSkipped++
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(row[3]), models.ColumnApplicationDate) {
			stats.RowsSkipped++
			continue
		}

		table.Rows = append(table.Rows, []string{
			convert(row[3], line+1),
			strings.TrimSpace(row[1]),
			strings.TrimSpace(row[2]),
			strings.TrimSpace(row[4]),
			CleanNumericField(row[5]),
			convert(row[6], line+1),
			convert(row[7], line+1),
			convert(row[8], line+1),
			convert(row[9], line+1),
			strings.ReplaceAll(strings.TrimSpace(row[10]), `"`, ""),
			CleanNumericField(row[11]),
			strings.TrimSpace(row[12]),
		})
		stats.RowsWritten++
	}

	logger.WithFields(logrus.Fields{
		"rows_read":     stats.RowsRead,
		"rows_written":  stats.RowsWritten,
		"rows_skipped":  stats.RowsSkipped,
		"date_failures": stats.DateFailures,
	}).Info("Converted apply-listing export")

	return table, stats
}

// ReformatCompactDates rewrites YYYYMMDD cells of the IPO date columns as
// YYYY/MM/DD. Other cells are copied untouched.
func ReformatCompactDates(source *models.Table) (models.Table, ConversionStats) {
	table := source.Clone()
	stats := ConversionStats{RowsRead: table.Len(), RowsWritten: table.Len()}

	for _, name := range models.IPODateColumns {
		column := table.ColumnIndex(name)
		if column < 0 {
			continue
		}
		for _, row := range table.Rows {
			if column >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[column])
			if !isCompactDate(value) {
				continue
			}
			row[column] = value[:4] + "/" + value[4:6] + "/" + value[6:8]
			stats.CellsRewritten++
		}
	}
	return table, stats
}

func isCompactDate(value string) bool {
	if len(value) != 8 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
