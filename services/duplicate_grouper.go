package services

import (
	"sort"

	"github.com/fenilmodi00/twipo-dedup/models"
)

// GroupDuplicates partitions records by stock code and returns only the codes that
// occur at least twice. Records keep their first-seen order inside a group.
// Records with a blank stock code are never grouped.
func GroupDuplicates(records []models.IPORecord) map[string]models.DuplicateGroup {
	byCode := make(map[string][]models.IPORecord)
	for _, record := range records {
		if record.StockCode == "" {
			continue
		}
		byCode[record.StockCode] = append(byCode[record.StockCode], record)
	}

	groups := make(map[string]models.DuplicateGroup)
	for code, members := range byCode {
		if len(members) < 2 {
			continue
		}
		groups[code] = models.DuplicateGroup{StockCode: code, Records: members}
	}
	return groups
}

// SortedGroupCodes returns the stock codes of groups in ascending order so runs
// emit diagnostics deterministically.
func SortedGroupCodes(groups map[string]models.DuplicateGroup) []string {
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
