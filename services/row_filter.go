package services

import (
	"strings"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/sirupsen/logrus"
)

// remarksFallbackColumn is where remarks sit in the canonical header.
const remarksFallbackColumn = 11

// RowFilter drops withdrawn or rejected applications by remark keyword and,
// optionally, keeps only one application year.
type RowFilter struct {
	Keywords []string
	Year     int
}

// NewRowFilter creates a filter. Nil keywords means no keyword filtering.
func NewRowFilter(keywords []string, year int) *RowFilter {
	return &RowFilter{Keywords: keywords, Year: year}
}

// Apply returns the rows that pass the filter, preserving header and order.
func (f *RowFilter) Apply(source *models.Table) (models.Table, int) {
	remarks := source.ColumnIndex(models.ColumnRemarks, "remarks")
	if remarks < 0 && len(f.Keywords) > 0 {
		remarks = remarksFallbackColumn
	}
	dates := source.ColumnIndex(models.ColumnApplicationDate, "application_date")

	filtered := models.Table{Header: append([]string(nil), source.Header...), Rows: make([][]string, 0, source.Len())}
	removed := 0

	for row, cells := range source.Rows {
		if keyword, matched := f.matchKeyword(source.Cell(row, remarks)); matched {
			logrus.WithFields(logrus.Fields{
				"component":  "RowFilter",
				"row":        row + 1,
				"keyword":    keyword,
				"stock_code": source.Cell(row, source.ColumnIndex(models.ColumnStockCode)),
			}).Debug("Dropping row by remark keyword")
			removed++
			continue
		}
		if f.Year > 0 && !f.matchesYear(source.Cell(row, dates)) {
			removed++
			continue
		}
		filtered.Rows = append(filtered.Rows, append([]string(nil), cells...))
	}

	return filtered, removed
}

func (f *RowFilter) matchKeyword(remark string) (string, bool) {
	if remark == "" {
		return "", false
	}
	for _, keyword := range f.Keywords {
		if keyword != "" && strings.Contains(remark, keyword) {
			return keyword, true
		}
	}
	return "", false
}

func (f *RowFilter) matchesYear(value string) bool {
	date, _ := NormalizeDate(value)
	return date != nil && date.Year() == f.Year
}
