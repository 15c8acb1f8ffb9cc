package services

import "github.com/fenilmodi00/twipo-dedup/models"

// AssembleOutput returns the surviving rows of source in their original order,
// with the header untouched. removed counts the dropped rows.
func AssembleOutput(source *models.Table, decisions models.Decisions) (output models.Table, removed int) {
	output.Header = make([]string, len(source.Header))
	copy(output.Header, source.Header)

	output.Rows = make([][]string, 0, source.Len())
	for row, cells := range source.Rows {
		if !decisions.Keeps(row) {
			removed++
			continue
		}
		kept := make([]string, len(cells))
		copy(kept, cells)
		output.Rows = append(output.Rows, kept)
	}
	return output, removed
}
