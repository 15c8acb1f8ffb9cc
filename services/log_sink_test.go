package services

import (
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogSink() (*LogSink, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &LogSink{logger: logrus.NewEntry(logger)}, hook
}

func TestLogSinkAmbiguousGroupLogsReasons(t *testing.T) {
	sink, hook := newTestLogSink()

	sink.GroupResolved(models.ResolutionEvent{
		StockCode: "1234",
		Path:      models.PathAuctionWindow,
		Kept:      []int{0, 1},
		Tied:      []int{0, 1},
		Ambiguous: true,
		Records: []models.RecordRationale{
			{Row: 0, Keep: true, Reason: "within window of auction"},
			{Row: 1, Keep: true, Reason: "within window of auction"},
		},
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, []int{1, 2}, entries[0].Data["tied_rows"])
	assert.Equal(t, []int{1, 2}, entries[0].Data["kept_rows"])

	for i, entry := range entries[1:] {
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, i+1, entry.Data["row"])
		assert.Equal(t, "within window of auction", entry.Message)
	}
}

func TestLogSinkResolvedGroupLogsReasons(t *testing.T) {
	sink, hook := newTestLogSink()

	sink.GroupResolved(models.ResolutionEvent{
		StockCode: "1234",
		Path:      models.PathFallbackNewest,
		Kept:      []int{1},
		Removed:   []int{0},
		Records: []models.RecordRationale{
			{Row: 0, Keep: false, Reason: "older application date"},
			{Row: 1, Keep: true, Reason: "newest application date"},
		},
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, []int{2}, entries[0].Data["kept_rows"])
	assert.Equal(t, []int{1}, entries[0].Data["removed_rows"])
	assert.Equal(t, "newest application date", entries[2].Message)
}
