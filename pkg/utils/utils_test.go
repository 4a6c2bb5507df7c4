package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeeklyDueDate(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start, WeeklyDueDate(start, 1))
	assert.Equal(t, start.AddDate(0, 0, 7), WeeklyDueDate(start, 2))
	assert.Equal(t, start.AddDate(0, 0, 112), WeeklyDueDate(start, 17))
}

func TestIsDateOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(now.AddDate(0, 0, -1), now))
	assert.False(t, IsDateOverdue(now.AddDate(0, 0, 1), now))
	assert.False(t, IsDateOverdue(now, now))
}

func TestTruncateToDay(t *testing.T) {
	ts := time.Date(2026, 3, 10, 17, 45, 30, 999, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), TruncateToDay(ts))
}

func TestSplitEvenly(t *testing.T) {
	cases := []struct {
		name  string
		total decimal.Decimal
		n     int
	}{
		{"divides cleanly", decimal.NewFromInt(1000), 4},
		{"rounding remainder", decimal.NewFromInt(12300), 17},
		{"cents total", decimal.NewFromFloat(100.01), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			part, last := SplitEvenly(tc.total, tc.n)

			sum := part.Mul(decimal.NewFromInt(int64(tc.n - 1))).Add(last)
			assert.True(t, sum.Equal(tc.total), "parts sum %s != total %s", sum, tc.total)
			assert.True(t, part.Equal(part.Round(2)))
		})
	}
}
