package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthWindowSingleMonth(t *testing.T) {
	w, err := MonthWindow(3, 2026, 1)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), w.End)
}

func TestMonthWindowYearRollover(t *testing.T) {
	w, err := MonthWindow(1, 2026, 2)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), w.End)
}

func TestMonthWindowLeapFebruary(t *testing.T) {
	w, err := MonthWindow(2, 2024, 1)
	require.NoError(t, err)
	require.Equal(t, 29, w.End.Day())
}

func TestMonthWindowSpansExactlyNMonths(t *testing.T) {
	w, err := MonthWindow(6, 2026, 6)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), w.End)
}

func TestMonthWindowInvalid(t *testing.T) {
	_, err := MonthWindow(3, 2026, 0)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = MonthWindow(13, 2026, 1)
	require.ErrorIs(t, err, ErrInvalidMonth)
}

func TestWindowContains(t *testing.T) {
	w, err := MonthWindow(1, 2026, 2)
	require.NoError(t, err)

	require.True(t, w.Contains(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, w.Contains(time.Date(2026, time.January, 31, 23, 59, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Time{}))
}

func TestMonthKeyPrev(t *testing.T) {
	k := MonthKey{Year: 2026, Month: time.January}
	require.Equal(t, MonthKey{Year: 2025, Month: time.December}, k.Prev())
	require.True(t, k.Prev().Before(k))
	require.Equal(t, "2025-12", k.Prev().String())
}
