package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agriserve-query/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{ptr(0), "₹0"},
		{ptr(999), "₹999"},
		{ptr(1000), "₹1,000"},
		{ptr(123456), "₹1,23,456"},
		{ptr(12345678), "₹1,23,45,678"},
		{ptr(1500.5), "₹1,500.5"},
		{ptr(2499.999), "₹2,499.999"},
		{ptr(-45000), "-₹45,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Currency(tt.in))
	}
}

func TestRatingAndAvailability(t *testing.T) {
	assert.Equal(t, "N/A", Rating(nil))
	assert.Equal(t, "4.5/5", Rating(ptr(4.5)))
	assert.Equal(t, "4.0/5", Rating(ptr(4)))
	assert.Equal(t, "✅ Yes", Availability(true))
	assert.Equal(t, "❌ No", Availability(false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "N/A", Truncate("", 10))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	// rune-safe: never splits a multi-byte character
	assert.Equal(t, "खेत...", Truncate("खेतखेतखेतखेत", 6))
}

func TestCapitalizeAndHumanize(t *testing.T) {
	assert.Equal(t, "Tractor", Capitalize("tractor"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "In progress", Humanize("in_progress"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "N/A", MaskEmail(""))
	assert.Equal(t, "ra***@example.com", MaskEmail("ramesh@example.com"))
	assert.Equal(t, "a***@x.in", MaskEmail("ab@x.in"))
	assert.Equal(t, "n***", MaskEmail("not-an-email"))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "⭐⭐⭐ (3/5)", Stars(3))
	assert.Equal(t, " (0/5)", Stars(-2))
	assert.Equal(t, "⭐⭐⭐⭐⭐ (5/5)", Stars(9))
}

func TestTimestampUsesKolkata(t *testing.T) {
	ts := time.Date(2026, 10, 14, 9, 34, 0, 0, time.UTC)
	assert.Equal(t, "14 Oct 2026, 3:04 pm", Timestamp(ts))
	assert.Equal(t, "2026-10-14", Date(ts))

	lateUTC := time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-15", Today(lateUTC))
}

func TestPercentAndJoin(t *testing.T) {
	assert.Equal(t, "87.3%", Percent(0.873))
	assert.Equal(t, "N/A", JoinOrNA(nil))
	assert.Equal(t, "a, b", JoinOrNA([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, FirstN([]string{"a", "b", "c"}, 2))
}

func TestTableLines(t *testing.T) {
	tbl := NewTable("#", "Name", "Brand")
	tbl.Row("1", "Swaraj 744", "Swaraj")

	assert.Equal(t, []string{
		"| # | Name | Brand |",
		"|---|------|-------|",
		"| 1 | Swaraj 744 | Swaraj |",
	}, tbl.Lines())
	assert.Equal(t, 1, tbl.Len())
}

func TestResultBuilders(t *testing.T) {
	errRes := ErrorResult("count_equipment", "Failed to count equipment: timeout")
	assert.Equal(t, "=== PLATFORM DATA ===\n\n⚠️ Error: Failed to count equipment: timeout\n\nThe system encountered an issue fetching live data. Please try again.", errRes.Context)
	assert.Equal(t, []string{"error"}, errRes.Sources)
	assert.False(t, errRes.HasContext)
	assert.True(t, IsErrorResult(errRes))

	auth := AuthRequired("my_profile", "profile")
	assert.Equal(t, "⚠️ You need to be logged in to view your profile. Please sign in first.", auth.Context)
	assert.Empty(t, auth.Sources)
	assert.NotNil(t, auth.Sources)
	assert.Equal(t, models.FreshnessRealTime, auth.DataFreshness)

	denied := Denied("analytics_revenue", "Non-admin cannot access admin data")
	assert.Equal(t, "=== ACCESS DENIED ===\n\n🔒 Non-admin cannot access admin data", denied.Context)
	assert.False(t, denied.HasContext)
	assert.False(t, IsErrorResult(denied))
}
