package services

import (
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanNumericField(t *testing.T) {
	assert.Equal(t, "1234567", CleanNumericField(` "1,234,567" `))
	assert.Equal(t, "", CleanNumericField("  "))
}

func TestConvertROCDate(t *testing.T) {
	converted, err := ConvertROCDate("113/01/15")
	require.NoError(t, err)
	assert.Equal(t, "20240115", converted)

	converted, err = ConvertROCDate(" ")
	require.NoError(t, err)
	assert.Empty(t, converted)

	for _, bad := range []string{"113/02/30", "113-01-15", "abc/01/01"} {
		_, err := ConvertROCDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestConvertApplyListing(t *testing.T) {
	records := [][]string{
		{"公司申請上市案件"},
		{"序號", "公司代號", "公司名稱", "申請日期", "董事長", "申請時股本", "審議日期", "董事會日期", "契約日期", "上市日期", "承銷商", "承銷價", "備註"},
		{"1", " 6789 ", "丙公司", "113/01/15", "王大明", `"1,000,000"`, "113/03/01", "", "bad", "113/06/01", `"元大"`, "50.5", "自行撤件"},
		{"2", "short"},
	}

	table, stats := ConvertApplyListing(records)

	assert.Equal(t, models.IPOHeader, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"20240115", "6789", "丙公司", "王大明", "1000000", "20240301", "", "", "20240601", "元大", "50.5", "自行撤件"}, table.Rows[0])
	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsWritten)
	assert.Equal(t, 3, stats.RowsSkipped)
	assert.Equal(t, 1, stats.DateFailures)
}

func TestReformatCompactDates(t *testing.T) {
	source := &models.Table{
		Header: []string{models.ColumnApplicationDate, models.ColumnStockCode, models.ColumnListingDate},
		Rows: [][]string{
			{"20240115", "12345678", "20240601"},
			{"2024/01/15", "1234", "2024011"},
			{"20240115"},
		},
	}

	table, stats := ReformatCompactDates(source)

	assert.Equal(t, [][]string{
		{"2024/01/15", "12345678", "2024/06/01"},
		{"2024/01/15", "1234", "2024011"},
		{"2024/01/15"},
	}, table.Rows)
	assert.Equal(t, 3, stats.CellsRewritten)
	assert.Equal(t, "20240115", source.Rows[0][0], "source is not modified")
}
