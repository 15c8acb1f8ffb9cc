package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auctionCSV = "\"113年 競價拍賣公告\"\n" +
	"\"序號\",\"開標日期\",\"證券名稱\",\"證券代號\",\"發行市場\"\n" +
	"\"1\",\"113/03/15\",\"甲公司\",=\"1234\",\"上櫃\"\n" +
	"\"2\",\"113/05/02\",\"乙公司\",=\"0056\",\"上市\"\n" +
	"\"說明:\"\n"

const auctionHTML = `<html><body>
<table><tr><td>navigation</td></tr></table>
<table>
  <thead><tr><th>序號</th><th>開標日期</th><th>證券名稱</th><th>證券代號</th></tr></thead>
  <tbody>
    <tr><td>1</td><td>2024/03/15</td><td>甲公司</td><td>1234</td></tr>
  </tbody>
</table>
</body></html>`

func testFetchConfig(t *testing.T, url string) shared.FetchConfig {
	return shared.FetchConfig{
		AuctionURL:         url,
		AuctionCachePath:   filepath.Join(t.TempDir(), "cache", "auction.csv"),
		HTTPRequestTimeout: 5 * time.Second,
		MaxRetryAttempts:   0,
	}
}

func TestParseAuctionBodyCSV(t *testing.T) {
	table, err := ParseAuctionBody([]byte(auctionCSV), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"序號", "開標日期", "證券名稱", "證券代號", "發行市場"}, table.Header)
	assert.Equal(t, [][]string{
		{"1", "113/03/15", "甲公司", "1234", "上櫃"},
		{"2", "113/05/02", "乙公司", "0056", "上市"},
	}, table.Rows)
}

func TestParseAuctionBodyHTML(t *testing.T) {
	table, err := ParseAuctionBody([]byte(auctionHTML), "text/html; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, models.ColumnAuctionStockCode, table.Header[3])
	assert.Equal(t, [][]string{{"1", "2024/03/15", "甲公司", "1234"}}, table.Rows)
}

func TestParseAuctionBodyWithoutHeader(t *testing.T) {
	_, err := ParseAuctionBody([]byte("a,b\n1,2\n"), "text/csv")
	require.Error(t, err)
	assert.True(t, shared.HasCategory(err, shared.ErrorCategoryValidation))
}

func TestAuctionFetcherFetchWritesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Write([]byte(auctionCSV))
	}))
	defer server.Close()

	config := testFetchConfig(t, server.URL)
	fetcher := NewAuctionFetcher(config)

	result, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AuctionOriginNetwork, result.Origin)
	assert.Equal(t, 2, result.Rows)

	cached, err := os.ReadFile(config.AuctionCachePath)
	require.NoError(t, err)
	assert.Equal(t, auctionCSV, string(cached))
	assert.Equal(t, int64(1), fetcher.GetMetrics().GetCustomCounter("network_fetches"))
}

func TestAuctionFetcherFallsBackToCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	config := testFetchConfig(t, server.URL)
	require.NoError(t, os.MkdirAll(filepath.Dir(config.AuctionCachePath), 0o755))
	require.NoError(t, os.WriteFile(config.AuctionCachePath, []byte(auctionCSV), 0o644))

	fetcher := NewAuctionFetcher(config)
	result, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AuctionOriginCache, result.Origin)
	assert.Equal(t, 2, result.Table.Len())
	assert.Equal(t, int64(1), fetcher.GetMetrics().GetCustomCounter("cache_fallbacks"))
}

func TestAuctionFetcherUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewAuctionFetcher(testFetchConfig(t, server.URL)).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, shared.HasCategory(err, shared.ErrorCategoryNetwork))
}

func TestAuctionFetcherLoadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auction.csv")
	require.NoError(t, os.WriteFile(path, []byte(auctionCSV), 0o644))

	result, err := NewAuctionFetcher(testFetchConfig(t, "http://127.0.0.1:0")).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, AuctionOriginFile, result.Origin)
	assert.Equal(t, "1234", result.Table.Rows[0][3])
}

func TestFetchedAuctionsDriveResolution(t *testing.T) {
	table, err := ParseAuctionBody([]byte(auctionCSV), "")
	require.NoError(t, err)

	engine, _ := newTestEngine(models.TieBreakClosestAuction)
	ipo := ipoTable(
		[]string{"2023/10/01", "1234", "甲公司", ""},
		[]string{"2024/06/01", "1234", "甲公司", ""},
	)

	result, err := engine.Resolve(ipo, &table)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2023/10/01", "1234", "甲公司", ""}}, result.Output.Rows)
}
