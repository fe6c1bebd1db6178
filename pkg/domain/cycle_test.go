package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCycleWindow_ClampsShortMonths(t *testing.T) {
	tests := []struct {
		startDay int
		month    Month
		start    time.Time
		end      time.Time
	}{
		{31, Month{2025, time.January}, date(2025, 1, 31), date(2025, 2, 27)},
		{31, Month{2025, time.February}, date(2025, 2, 28), date(2025, 3, 30)},
		{31, Month{2025, time.March}, date(2025, 3, 31), date(2025, 4, 29)},
		{31, Month{2025, time.April}, date(2025, 4, 30), date(2025, 5, 30)},
		{29, Month{2024, time.February}, date(2024, 2, 29), date(2024, 3, 28)},
		{30, Month{2025, time.January}, date(2025, 1, 30), date(2025, 2, 27)},
		{15, Month{2025, time.December}, date(2025, 12, 15), date(2026, 1, 14)},
		{1, Month{2025, time.June}, date(2025, 6, 1), date(2025, 6, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			w := CycleWindow(tt.startDay, tt.month)
			assert.Equal(t, tt.start, w.Start)
			assert.Equal(t, tt.end, w.End)
		})
	}
}

func TestCycleWindows_AreContiguous(t *testing.T) {
	m := Month{2024, time.January}
	for i := 0; i < 24; i++ {
		w := CycleWindow(31, m)
		next := CycleWindow(31, m.Next())
		assert.Equal(t, w.End.AddDate(0, 0, 1), next.Start, m.String())
		m = m.Next()
	}
}

func TestIsBillingDay(t *testing.T) {
	assert.True(t, IsBillingDay(31, date(2025, 2, 28)))
	assert.True(t, IsBillingDay(30, date(2024, 2, 29)))
	assert.False(t, IsBillingDay(29, date(2024, 2, 28)))
	assert.True(t, IsBillingDay(31, date(2025, 4, 30)))
	assert.True(t, IsBillingDay(10, date(2025, 4, 10)))
	assert.False(t, IsBillingDay(10, date(2025, 4, 11)))
}

func TestWindowBounds(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	w := CycleWindow(15, Month{2025, time.March})
	from, until := w.Bounds(seoul)

	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, seoul), from)
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, seoul), until)
	assert.True(t, w.Contains(date(2025, 4, 14)))
	assert.False(t, w.Contains(date(2025, 4, 15)))
}

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2025-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-12", m.Prev().String())
	assert.Equal(t, "2025-02", m.Next().String())
	assert.True(t, m.Prev().Before(m))
	assert.Equal(t, 28, m.Next().LastDay())

	var scanned Month
	require.NoError(t, scanned.Scan([]byte("2024-02")))
	assert.Equal(t, 29, scanned.LastDay())

	_, err = ParseMonth("2025-13")
	require.Error(t, err)
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 2, DaysUntil(date(2025, 2, 27), date(2025, 3, 1)))
	assert.Equal(t, 0, DaysUntil(time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC), date(2025, 3, 1)))
	assert.Equal(t, -1, DaysUntil(date(2025, 3, 2), date(2025, 3, 1)))
}

func TestCycleMonthOf(t *testing.T) {
	assert.Equal(t, Month{2025, time.January}, CycleMonthOf(10, date(2025, 2, 9)))
	assert.Equal(t, Month{2025, time.February}, CycleMonthOf(10, date(2025, 2, 10)))
	assert.Equal(t, Month{2025, time.February}, CycleMonthOf(31, date(2025, 2, 28)))
	assert.Equal(t, Month{2025, time.January}, CycleMonthOf(31, date(2025, 2, 27)))
	assert.Equal(t, Month{2025, time.March}, CycleMonthOf(1, date(2025, 3, 1)))
}
