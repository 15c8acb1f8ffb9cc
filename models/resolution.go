package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the outcome of comparing one application against one auction.
type Classification string

const (
	ClassificationBefore       Classification = "before"
	ClassificationWithinWindow Classification = "within-window"
	ClassificationBeyondWindow Classification = "beyond-window"
)

// Evidence is one classified (IPO record, auction record) pair.
type Evidence struct {
	IPORow         int            `json:"ipo_index"`
	AuctionRow     int            `json:"auction_index"`
	Classification Classification `json:"classification"`
	MonthDiff      int            `json:"month_diff"`
	PartialMonth   bool           `json:"partial_month"`
	AuctionDate    time.Time      `json:"auction_date"`
}

// ResolutionPath names the rule that decided a duplicate group.
type ResolutionPath string

const (
	PathAuctionWindow     ResolutionPath = "auction-window"
	PathFallbackNewest    ResolutionPath = "fallback-newest"
	PathFallbackFirstSeen ResolutionPath = "fallback-first-seen"
)

// TieBreakPolicy selects a survivor when several records carry within-window evidence.
type TieBreakPolicy string

const (
	TieBreakClosestAuction    TieBreakPolicy = "closest-auction"
	TieBreakNewestApplication TieBreakPolicy = "newest-application"
	TieBreakKeepAll           TieBreakPolicy = "keep-all"
)

// Valid reports whether the policy is one of the known values.
func (p TieBreakPolicy) Valid() bool {
	switch p {
	case TieBreakClosestAuction, TieBreakNewestApplication, TieBreakKeepAll:
		return true
	}
	return false
}

// RecordRationale explains the decision taken for a single record of a group.
type RecordRationale struct {
	Row             int        `json:"row_index"`
	ApplicationDate *time.Time `json:"application_date,omitempty"`
	Keep            bool       `json:"keep"`
	Reason          string     `json:"reason"`
}

// ResolutionEvent is the diagnostic emitted once per duplicate group. Row fields
// hold 0-based data row indexes; RowNumbers converts them for display.
type ResolutionEvent struct {
	StockCode    string            `json:"stock_code"`
	CompanyName  string            `json:"company_name"`
	Path         ResolutionPath    `json:"path"`
	Kept         []int             `json:"kept_indexes"`
	Removed      []int             `json:"removed_indexes"`
	Tied         []int             `json:"tied_indexes,omitempty"`
	Ambiguous    bool              `json:"ambiguous"`
	Records      []RecordRationale `json:"records"`
	Evidence     []Evidence        `json:"evidence,omitempty"`
	SkippedPairs int               `json:"skipped_pairs"`
}

// RowNumbers converts 0-based data row indexes into the 1-based row numbers
// shown in logs and persisted run history.
func RowNumbers(indexes []int) []int {
	numbers := make([]int, len(indexes))
	for i, index := range indexes {
		numbers[i] = index + 1
	}
	return numbers
}

// Decisions maps IPO row index to its keep flag. Rows absent from the map are kept.
type Decisions map[int]bool

// Keeps reports whether the row survives.
func (d Decisions) Keeps(row int) bool {
	keep, decided := d[row]
	return !decided || keep
}

// DedupResult is the full output of one resolution run.
type DedupResult struct {
	RunID               uuid.UUID         `json:"run_id"`
	StartedAt           time.Time         `json:"started_at"`
	Duration            time.Duration     `json:"duration"`
	TieBreak            TieBreakPolicy    `json:"tie_break"`
	Output              Table             `json:"-"`
	Decisions           Decisions         `json:"-"`
	Events              []ResolutionEvent `json:"events"`
	InputRows           int               `json:"input_rows"`
	OutputRows          int               `json:"output_rows"`
	DuplicateGroups     int               `json:"duplicate_groups"`
	Removed             int               `json:"removed"`
	AmbiguousGroups     int               `json:"ambiguous_groups"`
	IPODateFailures     int               `json:"ipo_date_failures"`
	AuctionDateFailures int               `json:"auction_date_failures"`
}
