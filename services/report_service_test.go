package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	table := models.Table{
		Header: []string{"代號", "備註"},
		Rows:   [][]string{{"1234", "a|b"}, {"5678"}, {"9", "line1\nline2", "extra"}},
	}

	markdown := NewReportService().RenderMarkdown(table)

	assert.Equal(t, strings.Join([]string{
		"| 代號 | 備註 |  |",
		"| --- | --- | --- |",
		`| 1234 | a\|b |  |`,
		"| 5678 |  |  |",
		"| 9 | line1<br>line2 | extra |",
		"",
	}, "\n"), markdown)
}

func TestRenderMarkdownEmpty(t *testing.T) {
	assert.Empty(t, NewReportService().RenderMarkdown(models.Table{}))
}

func TestWriteBadgeFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	badgePath := filepath.Join(dir, "badge.json")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,\"multi\nline\"\n2,3\n"), 0o644))

	badge, err := NewReportService().WriteBadgeFile(badgePath, csvPath)
	require.NoError(t, err)
	assert.Equal(t, "3", badge.Message)

	data, err := os.ReadFile(badgePath)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1), decoded["schemaVersion"])
	assert.Equal(t, "Lines", decoded["label"])
	assert.Equal(t, "3", decoded["message"])
	assert.Equal(t, "blue", decoded["color"])
}
