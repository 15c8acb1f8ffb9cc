package services

import (
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/stretchr/testify/assert"
)

func filterSource() *models.Table {
	return &models.Table{
		Header: []string{models.ColumnApplicationDate, models.ColumnStockCode, models.ColumnRemarks},
		Rows: [][]string{
			{"2024/01/15", "1111", ""},
			{"2024/02/01", "2222", "113/05/01自行撤件"},
			{"2023/12/01", "3333", "退件"},
			{"2023/06/01", "4444", "櫃轉市"},
			{"", "5555"},
		},
	}
}

func TestRowFilterKeywords(t *testing.T) {
	filtered, removed := NewRowFilter(shared.DefaultRemarkKeywords, 0).Apply(filterSource())

	assert.Equal(t, 2, removed)
	assert.Equal(t, [][]string{
		{"2024/01/15", "1111", ""},
		{"2023/06/01", "4444", "櫃轉市"},
		{"", "5555"},
	}, filtered.Rows)
}

func TestRowFilterYear(t *testing.T) {
	filtered, removed := NewRowFilter(nil, 2024).Apply(filterSource())

	assert.Equal(t, 3, removed)
	assert.Len(t, filtered.Rows, 2)
	assert.Equal(t, "2222", filtered.Rows[1][1])
}

func TestRowFilterFallsBackToRemarksPosition(t *testing.T) {
	row := make([]string, 12)
	row[11] = "已下櫃"
	source := &models.Table{Header: make([]string, 12), Rows: [][]string{row, make([]string, 12)}}

	filtered, removed := NewRowFilter([]string{"已下櫃"}, 0).Apply(source)
	assert.Equal(t, 1, removed)
	assert.Len(t, filtered.Rows, 1)
}
