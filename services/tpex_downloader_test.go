package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveDownloadedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "TPEX-IPO-utf8.csv")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "5f0c-guid"), []byte("new"), 0o644))

	require.NoError(t, moveDownloadedFile(dir, "5f0c-guid", target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(filepath.Join(dir, "5f0c-guid"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveDownloadedFileMissing(t *testing.T) {
	dir := t.TempDir()
	err := moveDownloadedFile(dir, "missing", filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.True(t, shared.HasCategory(err, shared.ErrorCategoryResource))
}

func TestTPExDownloaderUsesDefaults(t *testing.T) {
	config := shared.NewDefaultUnifiedConfiguration().Download
	downloader := NewTPExDownloader(config)

	assert.Equal(t, "button[data-format='csv-u8']", downloader.config.ButtonSelector)
	assert.Equal(t, "TPEX-IPO-utf8.csv", downloader.config.TargetFileName)
}
