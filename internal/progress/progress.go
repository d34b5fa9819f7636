// Package progress derives reading progress from the authoritative
// page/pageCount pair. Percentage and status are never stored; whichever
// representation a caller holds is converted through these functions.
package progress

import (
	"math"

	"github.com/bookmate/bookmate/internal/models"
)

// PageFromPercentage converts a 0-100 percentage into a page number,
// rounded and clamped to [0, pageCount].
func PageFromPercentage(percentage float64, pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	page := int(math.Round(percentage / 100 * float64(pageCount)))
	if page < 0 {
		return 0
	}
	if page > pageCount {
		return pageCount
	}
	return page
}

// PercentageFromPage converts a page number into a 0-100 percentage,
// clamped. An unknown page count yields 0.
func PercentageFromPage(page, pageCount int) float64 {
	if pageCount <= 0 {
		return 0
	}
	pct := 100 * float64(page) / float64(pageCount)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Known reports whether a meaningful percentage can be computed for the
// given page count. When the page count is unknown the percentage is
// unavailable rather than computed against a degenerate denominator.
func Known(pageCount int) bool {
	return pageCount > 0
}

// DeriveStatus derives the reading status from the page position.
// A positive page with an unknown page count counts as in progress.
func DeriveStatus(page, pageCount int) models.ReadingStatus {
	switch {
	case page <= 0:
		return models.StatusNotStarted
	case pageCount > 0 && page >= pageCount:
		return models.StatusFinished
	default:
		return models.StatusInProgress
	}
}
