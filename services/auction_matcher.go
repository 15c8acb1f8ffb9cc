package services

import (
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
)

// MonthsBetween returns the number of whole calendar months from one date to a
// later one. partial reports whether a remainder of days is left over, so
// 2024-01-15 to 2025-01-15 is 12 whole months and 2024-01-15 to 2025-01-16 is
// 12 months plus a partial month.
func MonthsBetween(from, to time.Time) (months int, partial bool) {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()

	months = (ty-fy)*12 + int(tm-fm)
	if td < fd {
		months--
	}
	return months, td != fd
}

// Classify compares one application date against one auction date. An auction on
// or before the application date is "before"; later auctions are within the
// window when they fall no more than windowMonths whole months after it.
func Classify(application, auction time.Time, windowMonths int) (models.Classification, int, bool) {
	if !auction.After(application) {
		return models.ClassificationBefore, 0, false
	}

	months, partial := MonthsBetween(application, auction)
	if months < windowMonths || (months == windowMonths && !partial) {
		return models.ClassificationWithinWindow, months, partial
	}
	return models.ClassificationBeyondWindow, months, partial
}

// AuctionMatcher looks up auctions by stock code and classifies them against
// the applications of a duplicate group.
type AuctionMatcher struct {
	windowMonths int
	byCode       map[string][]models.AuctionRecord
}

// NewAuctionMatcher indexes the auction records by stock code.
func NewAuctionMatcher(auctions []models.AuctionRecord, windowMonths int) *AuctionMatcher {
	byCode := make(map[string][]models.AuctionRecord)
	for _, auction := range auctions {
		if auction.StockCode == "" {
			continue
		}
		byCode[auction.StockCode] = append(byCode[auction.StockCode], auction)
	}
	return &AuctionMatcher{windowMonths: windowMonths, byCode: byCode}
}

// AuctionCount returns how many auctions are indexed under the stock code.
func (m *AuctionMatcher) AuctionCount(stockCode string) int {
	return len(m.byCode[stockCode])
}

// Match classifies every (record, auction) pair sharing the group's stock code.
// Pairs where either date is null carry no signal and are counted as skipped.
func (m *AuctionMatcher) Match(group models.DuplicateGroup) (evidence []models.Evidence, skipped int) {
	auctions := m.byCode[group.StockCode]
	for _, record := range group.Records {
		for _, auction := range auctions {
			if record.ApplicationDate == nil || auction.AuctionDate == nil {
				skipped++
				continue
			}

			classification, months, partial := Classify(*record.ApplicationDate, *auction.AuctionDate, m.windowMonths)
			evidence = append(evidence, models.Evidence{
				IPORow:         record.Row,
				AuctionRow:     auction.Row,
				Classification: classification,
				MonthDiff:      months,
				PartialMonth:   partial,
				AuctionDate:    *auction.AuctionDate,
			})
		}
	}
	return evidence, skipped
}
