package services

import (
	"testing"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupDuplicates(t *testing.T) {
	records := []models.IPORecord{
		{Row: 0, StockCode: "1234"},
		{Row: 1, StockCode: "5678"},
		{Row: 2, StockCode: "1234"},
		{Row: 3, StockCode: ""},
		{Row: 4, StockCode: ""},
		{Row: 5, StockCode: "1111"},
		{Row: 6, StockCode: "1111"},
		{Row: 7, StockCode: "1234"},
	}

	groups := GroupDuplicates(records)

	require.Len(t, groups, 2)
	assert.NotContains(t, groups, "5678")
	assert.NotContains(t, groups, "")

	group := groups["1234"]
	require.Len(t, group.Records, 3)
	assert.Equal(t, []int{0, 2, 7}, []int{group.Records[0].Row, group.Records[1].Row, group.Records[2].Row})

	assert.Equal(t, []string{"1111", "1234"}, SortedGroupCodes(groups))
}

func TestGroupDuplicatesNoDuplicates(t *testing.T) {
	groups := GroupDuplicates([]models.IPORecord{{Row: 0, StockCode: "1"}, {Row: 1, StockCode: "2"}})
	assert.Empty(t, groups)
}
