package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
)

// rocYearOffset converts a Republic of China (Minguo) year into a Gregorian year.
const rocYearOffset = 1911

var genericDateLayouts = []string{
	"20060102",
	"2006.1.2",
	"2006年1月2日",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// NormalizeDate converts a locale date string into a calendar date (UTC midnight).
// It returns nil when the value is blank or cannot be parsed; ok is false only for
// non-blank values that failed to parse.
func NormalizeDate(raw string) (date *time.Time, ok bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, true
	}

	var parsed time.Time
	var err error

	switch {
	case strings.Contains(value, "/"):
		segments := strings.Split(value, "/")
		switch len(segments[0]) {
		case 2:
			// Two-digit years pivot at 69: 00-68 are 20xx, 69-99 are 19xx.
			parsed, err = time.Parse("06/1/2", value)
		case 3:
			parsed, err = parseROCDate(segments)
		default:
			parsed, err = time.Parse("2006/1/2", value)
		}
	case strings.Contains(value, "-"):
		parsed, err = time.Parse("2006-1-2", value)
	default:
		parsed, err = parseGenericDate(value)
	}

	if err != nil {
		return nil, false
	}

	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return &day, true
}

// NormalizeColumn parses every cell of a column. The returned slice is indexed by
// row; failures counts non-blank cells that could not be parsed.
func NormalizeColumn(table *models.Table, column int) (dates []*time.Time, failures int) {
	dates = make([]*time.Time, table.Len())
	if column < 0 {
		return dates, 0
	}

	for row := range table.Rows {
		date, ok := NormalizeDate(table.Cell(row, column))
		if !ok {
			failures++
		}
		dates[row] = date
	}
	return dates, failures
}

func parseROCDate(segments []string) (time.Time, error) {
	if len(segments) != 3 {
		return time.Time{}, strconv.ErrSyntax
	}

	year, err := strconv.Atoi(segments[0])
	if err != nil {
		return time.Time{}, err
	}

	return time.Parse("2006/1/2", strconv.Itoa(year+rocYearOffset)+"/"+segments[1]+"/"+segments[2])
}

func parseGenericDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range genericDateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
