package models

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary is a persisted resolution run.
type RunSummary struct {
	ID                  uuid.UUID      `json:"id"`
	StartedAt           time.Time      `json:"started_at"`
	Duration            time.Duration  `json:"duration"`
	TieBreak            TieBreakPolicy `json:"tie_break"`
	InputRows           int            `json:"input_rows"`
	OutputRows          int            `json:"output_rows"`
	DuplicateGroups     int            `json:"duplicate_groups"`
	Removed             int            `json:"removed"`
	AmbiguousGroups     int            `json:"ambiguous_groups"`
	IPODateFailures     int            `json:"ipo_date_failures"`
	AuctionDateFailures int            `json:"auction_date_failures"`
	AuctionOrigin       string         `json:"auction_origin,omitempty"`
}

// Summary returns the persisted view of a result.
func (r *DedupResult) Summary(auctionOrigin string) RunSummary {
	return RunSummary{
		ID:                  r.RunID,
		StartedAt:           r.StartedAt,
		Duration:            r.Duration,
		TieBreak:            r.TieBreak,
		InputRows:           r.InputRows,
		OutputRows:          r.OutputRows,
		DuplicateGroups:     r.DuplicateGroups,
		Removed:             r.Removed,
		AmbiguousGroups:     r.AmbiguousGroups,
		IPODateFailures:     r.IPODateFailures,
		AuctionDateFailures: r.AuctionDateFailures,
		AuctionOrigin:       auctionOrigin,
	}
}
