package penalty

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFine(t *testing.T) {
	rate := decimal.RequireFromString("0.50")
	due := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		returned time.Time
		expected string
	}{
		{name: "early", returned: due.Add(-48 * time.Hour), expected: "0"},
		{name: "exactly on due", returned: due, expected: "0"},
		{name: "one second late", returned: due.Add(time.Second), expected: "0.5"},
		{name: "one day late", returned: due.Add(24 * time.Hour), expected: "0.5"},
		{name: "three days late", returned: due.Add(72 * time.Hour), expected: "1.5"},
		{name: "partial fourth day", returned: due.Add(72*time.Hour + time.Minute), expected: "2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fine(due, tc.returned, rate)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.expected)), "got %s", got)
		})
	}
}

func TestFine_NonDecreasing(t *testing.T) {
	rate := decimal.RequireFromString("0.50")
	due := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)

	prev := decimal.Zero
	for h := 0; h <= 24*10; h += 6 {
		f := Fine(due, due.Add(time.Duration(h)*time.Hour), rate)
		assert.True(t, f.GreaterThanOrEqual(prev))
		prev = f
	}
	assert.True(t, Fine(due, due.Add(24*time.Hour), rate).Equal(rate))
	assert.True(t, Fine(due, due.Add(48*time.Hour), rate).GreaterThan(Fine(due, due.Add(24*time.Hour), rate)))
}
