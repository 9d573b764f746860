package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestResolvePeriod(t *testing.T) {
	at := time.Date(2026, time.October, 18, 14, 30, 0, 0, time.Local)
	fixNow(t, at)

	tests := []struct {
		text  string
		from  time.Time
		to    time.Time
		label string
	}{
		{text: "", from: day(2026, time.October, 12), to: at, label: "7 hari terakhir"},
		{text: "hari ini", from: day(2026, time.October, 18), to: at, label: "hari ini"},
		{text: "penjualan kemarin", from: day(2026, time.October, 17), to: endOfDay(day(2026, time.October, 17)), label: "kemarin"},
		{text: "kemarin lusa", from: day(2026, time.October, 16), to: endOfDay(day(2026, time.October, 16)), label: "kemarin lusa"},
		{text: "bulan ini", from: day(2026, time.October, 1), to: at, label: "bulan ini"},
		{text: "bulan lalu", from: day(2026, time.September, 1), to: endOfDay(day(2026, time.September, 30)), label: "september 2026"},
		{text: "februari 2024", from: day(2024, time.February, 1), to: endOfDay(day(2024, time.February, 29)), label: "februari 2024"},
		{text: "agu", from: day(2026, time.August, 1), to: endOfDay(day(2026, time.August, 31)), label: "agustus 2026"},
		{text: "2026-10-01 2026-10-05", from: day(2026, time.October, 1), to: endOfDay(day(2026, time.October, 5)), label: "2026-10-01 s/d 2026-10-05"},
		{text: "2026-10-03", from: day(2026, time.October, 3), to: endOfDay(day(2026, time.October, 3)), label: "2026-10-03"},
	}
	for _, tt := range tests {
		got, err := resolvePeriod(tt.text)
		require.NoError(t, err, tt.text)
		assert.True(t, tt.from.Equal(got.From), "%q from: got %s", tt.text, got.From)
		assert.True(t, tt.to.Equal(got.To), "%q to: got %s", tt.text, got.To)
		assert.Equal(t, tt.label, got.Label, tt.text)
	}
}

func TestResolvePeriodErrors(t *testing.T) {
	fixNow(t, time.Date(2026, time.October, 18, 12, 0, 0, 0, time.Local))

	_, err := resolvePeriod("2026-10-05 2026-10-01")
	assert.Error(t, err)

	_, err = resolvePeriod("kapan saja")
	assert.Error(t, err)
}

func TestBulanLaluInJanuary(t *testing.T) {
	fixNow(t, time.Date(2027, time.January, 10, 8, 0, 0, 0, time.Local))

	got, err := resolvePeriod("bulan lalu")
	require.NoError(t, err)
	assert.True(t, day(2026, time.December, 1).Equal(got.From))
	assert.True(t, endOfDay(day(2026, time.December, 31)).Equal(got.To))
}
