package services

import (
	"testing"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := date(year, month, day)
	return &d
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"two digit year", "24/01/15", date(2024, time.January, 15)},
		{"two digit year last century", "99/12/31", date(1999, time.December, 31)},
		{"four digit year", "2024/01/15", date(2024, time.January, 15)},
		{"four digit year unpadded", "2024/1/5", date(2024, time.January, 5)},
		{"roc year", "113/01/15", date(2024, time.January, 15)},
		{"iso", "2024-03-01", date(2024, time.March, 1)},
		{"compact", "20240301", date(2024, time.March, 1)},
		{"chinese", "2024年3月1日", date(2024, time.March, 1)},
		{"surrounding whitespace", "  2024/03/01 ", date(2024, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw)
			require.True(t, ok)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}

func TestNormalizeDateFailures(t *testing.T) {
	for _, raw := range []string{"2024/02/30", "not a date", "2024-13-01", "24/1", "abc/01/01"} {
		got, ok := NormalizeDate(raw)
		assert.Nil(t, got, raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeDateRejectsTimestamps(t *testing.T) {
	for _, raw := range []string{"2024-01-15 10:00:00", "2024-01-15T00:00:00Z", "2024/01/15 10:00:00"} {
		got, ok := NormalizeDate(raw)
		assert.Nil(t, got, raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeDateBlankIsNullWithoutFailure(t *testing.T) {
	got, ok := NormalizeDate("   ")
	assert.Nil(t, got)
	assert.True(t, ok)
}

func TestNormalizeColumnCountsFailures(t *testing.T) {
	table := models.Table{
		Header: []string{"申請日期"},
		Rows:   [][]string{{"2024/01/15"}, {"garbage"}, {""}, {}, {"24/02/01"}},
	}

	dates, failures := NormalizeColumn(&table, 0)

	require.Len(t, dates, 5)
	assert.Equal(t, 1, failures)
	assert.NotNil(t, dates[0])
	assert.Nil(t, dates[1])
	assert.Nil(t, dates[2])
	assert.Nil(t, dates[3])
	assert.True(t, date(2024, time.February, 1).Equal(*dates[4]))
}
