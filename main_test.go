package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIPOCSV = "申請日期,股票代號,公司名稱,備註\n" +
	"2024/01/15,1234,甲公司,\n" +
	"2024/06/01,1234,甲公司,\n" +
	"2024/03/01,5678,乙公司,自行撤件\n"

const testAuctionCSV = "序號,開標日期,證券名稱,證券代號\n" +
	"1,2024/03/20,甲公司,1234\n"

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDedupCommand(t *testing.T) {
	dir := t.TempDir()
	ipo := writeFile(t, dir, "ipo.csv", testIPOCSV)
	auction := writeFile(t, dir, "auction.csv", testAuctionCSV)
	output := filepath.Join(dir, "out.csv")
	report := filepath.Join(dir, "report.json")

	_, err := executeCommand(t, "dedup", ipo, output, "--auction", auction, "--report", report)
	require.NoError(t, err)

	table, err := services.ReadTableFile(output, services.EncodingAuto)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2024/01/15", "1234", "甲公司", ""},
		{"2024/03/01", "5678", "乙公司", "自行撤件"},
	}, table.Rows)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1), decoded["removed"])
}

func TestDedupCommandRejectsBadWindow(t *testing.T) {
	dir := t.TempDir()
	ipo := writeFile(t, dir, "ipo.csv", testIPOCSV)

	_, err := executeCommand(t, "dedup", ipo, filepath.Join(dir, "out.csv"), "--window-months", "0")
	assert.Error(t, err)
}

func TestFilterAndBadgeCommands(t *testing.T) {
	dir := t.TempDir()
	ipo := writeFile(t, dir, "ipo.csv", testIPOCSV)
	filtered := filepath.Join(dir, "filtered.csv")
	badge := filepath.Join(dir, "badge.json")

	_, err := executeCommand(t, "filter", ipo, filtered)
	require.NoError(t, err)

	table, err := services.ReadTableFile(filtered, services.EncodingAuto)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)

	_, err = executeCommand(t, "badge", filtered, badge)
	require.NoError(t, err)

	data, err := os.ReadFile(badge)
	require.NoError(t, err)
	assert.JSONEq(t, `{"schemaVersion":1,"label":"Lines","message":"3","color":"blue"}`, string(data))
}

func TestReadCommandDecodesBig5(t *testing.T) {
	dir := t.TempDir()
	// "測試" in Big5
	path := writeFile(t, dir, "big5.txt", string([]byte{0xb4, 0xfa, 0xb8, 0xd5}))

	out, err := executeCommand(t, "read", path)
	require.NoError(t, err)
	assert.Equal(t, "測試", out)
}

func TestReadCommandFallsBackToDetectedEncoding(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "utf8.csv", testIPOCSV)

	out, err := executeCommand(t, "read", path)
	require.NoError(t, err)
	assert.Equal(t, testIPOCSV, out)
}

func TestUnknownNormalizeMode(t *testing.T) {
	dir := t.TempDir()
	ipo := writeFile(t, dir, "ipo.csv", testIPOCSV)

	_, err := executeCommand(t, "normalize", ipo, filepath.Join(dir, "out.csv"), "--mode", "nope")
	assert.Error(t, err)
}
