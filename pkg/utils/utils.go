package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeeklyDueDate calculates the due date for a schedule week. Week 1 falls on
// the disbursement date itself; each following week is 7 days later.
func WeeklyDueDate(disbursedAt time.Time, week int) time.Time {
	return disbursedAt.AddDate(0, 0, 7*(week-1))
}

// IsDateOverdue checks if a due date is in the past relative to now.
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// TruncateToDay drops the time-of-day component.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SplitEvenly divides total into n currency-rounded parts where the final
// part absorbs the rounding remainder, so the parts sum exactly to total.
// Assumes total is large relative to n (principal and term bounds guarantee
// at least a cent per part); degenerate tiny totals could leave the final
// part off by more than one rounding step.
func SplitEvenly(total decimal.Decimal, n int) (part decimal.Decimal, last decimal.Decimal) {
	part = total.Div(decimal.NewFromInt(int64(n))).Round(2)
	last = total.Sub(part.Mul(decimal.NewFromInt(int64(n - 1))))
	return part, last
}
