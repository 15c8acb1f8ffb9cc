package services

import (
	"fmt"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
)

// ResolutionPolicy turns matcher evidence into keep/remove decisions for a group.
type ResolutionPolicy struct {
	tieBreak models.TieBreakPolicy
}

// NewResolutionPolicy creates a policy with the given tie-break rule. Unknown
// rules fall back to closest-auction.
func NewResolutionPolicy(tieBreak models.TieBreakPolicy) *ResolutionPolicy {
	if !tieBreak.Valid() {
		tieBreak = models.TieBreakClosestAuction
	}
	return &ResolutionPolicy{tieBreak: tieBreak}
}

// TieBreak returns the configured tie-break rule.
func (p *ResolutionPolicy) TieBreak() models.TieBreakPolicy {
	return p.tieBreak
}

type candidate struct {
	position  int
	record    models.IPORecord
	monthDiff int
	partial   bool
}

// Resolve decides which records of the group survive. Records with within-window
// auction evidence win; when none has any, the newest application date wins and
// null dates never do.
func (p *ResolutionPolicy) Resolve(group models.DuplicateGroup, evidence []models.Evidence, skipped int) models.ResolutionEvent {
	event := models.ResolutionEvent{
		StockCode:    group.StockCode,
		CompanyName:  group.CompanyName(),
		Evidence:     evidence,
		SkippedPairs: skipped,
	}

	candidates := windowCandidates(group, evidence)

	keep := make(map[int]string)
	var reasonRemoved func(record models.IPORecord) string

	switch {
	case len(candidates) > 0:
		event.Path = models.PathAuctionWindow
		if len(candidates) > 1 {
			event.Ambiguous = true
			for _, c := range candidates {
				event.Tied = append(event.Tied, c.record.Row)
			}
		}

		if len(candidates) == 1 {
			keep[candidates[0].record.Row] = fmt.Sprintf("auction within window (%d months)", candidates[0].monthDiff)
		} else if p.tieBreak == models.TieBreakKeepAll {
			for _, c := range candidates {
				keep[c.record.Row] = fmt.Sprintf("auction within window (%d months), tie kept", c.monthDiff)
			}
		} else {
			winner := p.pickCandidate(candidates)
			keep[winner.record.Row] = fmt.Sprintf("auction within window (%d months), won %s tie-break", winner.monthDiff, p.tieBreak)
		}

		inWindow := make(map[int]bool, len(candidates))
		for _, c := range candidates {
			inWindow[c.record.Row] = true
		}
		reasonRemoved = func(record models.IPORecord) string {
			if inWindow[record.Row] {
				return fmt.Sprintf("auction within window, lost %s tie-break", p.tieBreak)
			}
			return "no auction within window"
		}

	default:
		newest, tied := newestRecords(group)
		if len(newest) == 0 {
			event.Path = models.PathFallbackFirstSeen
			event.Ambiguous = true
			for _, record := range group.Records {
				event.Tied = append(event.Tied, record.Row)
			}
			keep[group.Records[0].Row] = "no application dates, kept first seen"
			reasonRemoved = func(models.IPORecord) string { return "no application date" }
			break
		}

		event.Path = models.PathFallbackNewest
		if tied {
			event.Ambiguous = true
			for _, record := range newest {
				event.Tied = append(event.Tied, record.Row)
			}
			keep[newest[0].Row] = "newest application date, first seen among ties"
		} else {
			keep[newest[0].Row] = "newest application date"
		}
		reasonRemoved = func(record models.IPORecord) string {
			if record.ApplicationDate == nil {
				return "no application date"
			}
			return "older application date"
		}
	}

	for _, record := range group.Records {
		rationale := models.RecordRationale{Row: record.Row, ApplicationDate: record.ApplicationDate}
		if reason, kept := keep[record.Row]; kept {
			rationale.Keep = true
			rationale.Reason = reason
			event.Kept = append(event.Kept, record.Row)
		} else {
			rationale.Reason = reasonRemoved(record)
			event.Removed = append(event.Removed, record.Row)
		}
		event.Records = append(event.Records, rationale)
	}

	return event
}

// Apply records the event's decisions into the decision map.
func (p *ResolutionPolicy) Apply(event models.ResolutionEvent, decisions models.Decisions) {
	for _, row := range event.Kept {
		decisions[row] = true
	}
	for _, row := range event.Removed {
		decisions[row] = false
	}
}

func (p *ResolutionPolicy) pickCandidate(candidates []candidate) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if p.better(c, best) {
			best = c
		}
	}
	return best
}

// better reports whether a beats b. Equal candidates keep the earlier one.
func (p *ResolutionPolicy) better(a, b candidate) bool {
	closer := compareCloseness(a, b)
	newer := compareDates(a.record.ApplicationDate, b.record.ApplicationDate)

	if p.tieBreak == models.TieBreakNewestApplication {
		if newer != 0 {
			return newer > 0
		}
		if closer != 0 {
			return closer > 0
		}
	} else {
		if closer != 0 {
			return closer > 0
		}
		if newer != 0 {
			return newer > 0
		}
	}
	return a.position < b.position
}

// windowCandidates returns the records holding at least one within-window pair,
// each with its closest within-window auction, in first-seen order.
func windowCandidates(group models.DuplicateGroup, evidence []models.Evidence) []candidate {
	closest := make(map[int]models.Evidence)
	for _, e := range evidence {
		if e.Classification != models.ClassificationWithinWindow {
			continue
		}
		current, seen := closest[e.IPORow]
		if !seen || e.MonthDiff < current.MonthDiff || (e.MonthDiff == current.MonthDiff && !e.PartialMonth && current.PartialMonth) {
			closest[e.IPORow] = e
		}
	}

	var candidates []candidate
	for position, record := range group.Records {
		e, ok := closest[record.Row]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{
			position:  position,
			record:    record,
			monthDiff: e.MonthDiff,
			partial:   e.PartialMonth,
		})
	}
	return candidates
}

// newestRecords returns the records sharing the maximum non-null application
// date in first-seen order, and whether more than one shares it.
func newestRecords(group models.DuplicateGroup) ([]models.IPORecord, bool) {
	var newest []models.IPORecord
	var latest time.Time

	for _, record := range group.Records {
		if record.ApplicationDate == nil {
			continue
		}
		switch {
		case len(newest) == 0 || record.ApplicationDate.After(latest):
			latest = *record.ApplicationDate
			newest = []models.IPORecord{record}
		case record.ApplicationDate.Equal(latest):
			newest = append(newest, record)
		}
	}
	return newest, len(newest) > 1
}

// compareCloseness orders candidates by their closest auction; a positive
// result means a is closer.
func compareCloseness(a, b candidate) int {
	if a.monthDiff != b.monthDiff {
		if a.monthDiff < b.monthDiff {
			return 1
		}
		return -1
	}
	if a.partial != b.partial {
		if !a.partial {
			return 1
		}
		return -1
	}
	return 0
}

// compareDates returns 1 when a is later than b, -1 when earlier. A null date
// always loses against a real one.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case a.Before(*b):
		return -1
	}
	return 0
}
