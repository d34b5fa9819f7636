package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookmate/bookmate/internal/models"
)

func TestPageFromPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		percentage float64
		pageCount  int
		want       int
	}{
		{"zero", 0, 300, 0},
		{"half", 50, 300, 150},
		{"full", 100, 300, 300},
		{"rounds up", 50, 301, 151}, // 150.5 rounds to 151
		{"clamped above", 150, 300, 300},
		{"clamped below", -10, 300, 0},
		{"unknown page count", 50, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PageFromPercentage(tt.percentage, tt.pageCount))
		})
	}
}

func TestPercentageFromPage(t *testing.T) {
	t.Parallel()

	assert.Zero(t, PercentageFromPage(50, 0))
	assert.Zero(t, PercentageFromPage(0, 200))
	assert.InDelta(t, 25.0, PercentageFromPage(50, 200), 0.0001)
	assert.Equal(t, 100.0, PercentageFromPage(250, 200)) // clamped
	assert.Zero(t, PercentageFromPage(-5, 200))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	// Round-trip is exact within +-1 page due to rounding.
	for _, pageCount := range []int{1, 7, 100, 333, 1024} {
		for page := 0; page <= pageCount; page++ {
			got := PageFromPercentage(PercentageFromPage(page, pageCount), pageCount)
			assert.InDelta(t, page, got, 1, "pageCount=%d page=%d", pageCount, page)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, models.StatusNotStarted, DeriveStatus(0, 300))
	assert.Equal(t, models.StatusNotStarted, DeriveStatus(0, 0))
	assert.Equal(t, models.StatusInProgress, DeriveStatus(1, 300))
	assert.Equal(t, models.StatusInProgress, DeriveStatus(299, 300))
	assert.Equal(t, models.StatusFinished, DeriveStatus(300, 300))
	assert.Equal(t, models.StatusFinished, DeriveStatus(301, 300))

	// Unknown page count never yields Finished.
	assert.Equal(t, models.StatusInProgress, DeriveStatus(50, 0))
}

func TestKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, Known(1))
	assert.False(t, Known(0))
	assert.False(t, Known(-3))
}
