package schedule

import (
	"fmt"
	"time"
)

const yearMonthLayout = "2006-01"

// YearMonth is a calendar month in UTC.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses the "YYYY-MM" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q, expected YYYY-MM: %w", s, err)
	}
	return YearMonthOf(t), nil
}

// YearMonthOf returns the calendar month t falls in, evaluated in UTC.
func YearMonthOf(t time.Time) YearMonth {
	t = t.UTC()
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) index() int {
	return ym.Year*12 + int(ym.Month) - 1
}

func (ym YearMonth) Before(other YearMonth) bool { return ym.index() < other.index() }
func (ym YearMonth) After(other YearMonth) bool  { return ym.index() > other.index() }
func (ym YearMonth) Equal(other YearMonth) bool  { return ym.index() == other.index() }

// MonthsSince returns the number of whole months from earlier to ym (negative when ym is before it).
func (ym YearMonth) MonthsSince(earlier YearMonth) int {
	return ym.index() - earlier.index()
}

func (ym YearMonth) AddMonths(n int) YearMonth {
	return YearMonthOf(ym.Start().AddDate(0, n, 0))
}

// DaysIn returns the length of the month.
func (ym YearMonth) DaysIn() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Start is day 1 at 00:00:00 UTC.
func (ym YearMonth) Start() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the month at 23:59:59 UTC.
func (ym YearMonth) End() time.Time {
	return time.Date(ym.Year, ym.Month, ym.DaysIn(), 23, 59, 59, 0, time.UTC)
}

// Day returns the given day of the month at 00:00 UTC, clipped to the month length.
func (ym YearMonth) Day(day int) time.Time {
	if n := ym.DaysIn(); day > n {
		day = n
	}
	return time.Date(ym.Year, ym.Month, day, 0, 0, 0, 0, time.UTC)
}
