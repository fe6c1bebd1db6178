package domain

import "time"

// Billing cycles are anchored on the day of month the party started. Months
// shorter than the anchor day clamp to their last day, so a party started on
// the 31st bills on Feb 28 (29 in leap years), Apr 30, and so on.
//
// Dates in this file are civil dates: midnight UTC carrying only the
// year/month/day of the instant in the caller's location.

// DateOf truncates t to its civil date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BillingDay is the day of month m on which a party anchored on startDay bills.
func BillingDay(startDay int, m Month) int {
	return min(startDay, m.LastDay())
}

// IsBillingDay reports whether date is the billing day for its month.
func IsBillingDay(startDay int, date time.Time) bool {
	return BillingDay(startDay, MonthOf(date)) == date.Day()
}

// CycleStart is the first civil date of the cycle that begins in month m.
func CycleStart(startDay int, m Month) time.Time {
	return time.Date(m.Year, m.Month, BillingDay(startDay, m), 0, 0, 0, 0, time.UTC)
}

// Window is an inclusive range of civil dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// CycleWindow returns the billing cycle that begins in month m. It ends the
// day before the next cycle begins.
func CycleWindow(startDay int, m Month) Window {
	return Window{
		Start: CycleStart(startDay, m),
		End:   CycleStart(startDay, m.Next()).AddDate(0, 0, -1),
	}
}

// Bounds converts the window to a half-open instant range [from, until) in loc.
func (w Window) Bounds(loc *time.Location) (from, until time.Time) {
	from = time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, loc)
	end := w.End.AddDate(0, 0, 1)
	until = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	return from, until
}

// Contains reports whether the civil date falls inside the window.
func (w Window) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(w.Start) && !d.After(w.End)
}

// DaysUntil counts whole civil days from a to b; negative when b precedes a.
func DaysUntil(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// CycleMonthOf returns the month whose cycle contains date. Dates before the
// billing day belong to the previous month's cycle.
func CycleMonthOf(startDay int, date time.Time) Month {
	m := MonthOf(date)
	if date.Day() < BillingDay(startDay, m) {
		return m.Prev()
	}
	return m
}
