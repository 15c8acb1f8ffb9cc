package services

import (
	"context"
	"os"
	"testing"

	"github.com/fenilmodi00/twipo-dedup/database"
	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionReasonJoinsKeptReasons(t *testing.T) {
	event := models.ResolutionEvent{Records: []models.RecordRationale{
		{Row: 0, Keep: false, Reason: "older application date"},
		{Row: 1, Keep: true, Reason: "newest application date"},
	}}

	assert.Equal(t, "newest application date", decisionReason(event))
	assert.Equal(t, []int64{1, 6}, rowNumbers([]int{0, 5}))
}

func TestRunStoreSaveAndList(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping run store test - TEST_DATABASE_URL not set")
	}

	config := shared.NewDefaultUnifiedConfiguration().Database
	db, err := database.Open(dbURL, &config)
	if err != nil {
		t.Skipf("Skipping run store test - database not available: %v", err)
	}
	defer db.Close()
	require.NoError(t, database.Migrate(db))

	engine, _ := newTestEngine(models.TieBreakClosestAuction)
	result, err := engine.Resolve(ipoTable(
		[]string{"2023/03/01", "1234", "甲公司", ""},
		[]string{"2024/03/01", "1234", "甲公司", ""},
	), auctionTable())
	require.NoError(t, err)

	store := NewRunStore(db)
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, result, AuctionOriginFile))
	defer db.Exec("DELETE FROM dedup_runs WHERE id = $1", result.RunID)

	runs, err := store.ListRuns(ctx, 100)
	require.NoError(t, err)

	var found *models.RunSummary
	for i := range runs {
		if runs[i].ID == result.RunID {
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 1, found.Removed)
	assert.Equal(t, AuctionOriginFile, found.AuctionOrigin)

	decisions, err := store.ListDecisions(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "1234", decisions[0].StockCode)
	assert.Equal(t, []int64{2}, decisions[0].KeptRows)
	assert.Equal(t, []int64{1}, decisions[0].RemovedRows)
}
