// Package period resolves logical timeframes (week, month, quarter) into
// concrete inclusive calendar date ranges.
//
// All dates are day-granular and expressed at UTC midnight. Weeks start on
// Saturday.
package period

import (
	"fmt"
	"strings"
	"time"
)

// WeekStart is the weekday every week period begins on.
const WeekStart = time.Saturday

const (
	daysPerWeek      = 7
	monthsPerQuarter = 3
	dateLayout       = "2006-01-02"
)

// Kind selects the length of a period.
type Kind int

// Supported period kinds.
const (
	Week Kind = iota + 1
	Month
	Quarter
)

// String returns the lower-case name used in configuration and query strings.
func (k Kind) String() string {
	switch k {
	case Week:
		return "week"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	default:
		return "unknown"
	}
}

// ParseKind parses "week", "month" or "quarter" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "quarter", "quarterly":
		return Quarter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Period is an inclusive calendar span [Start, End].
type Period struct {
	Kind  Kind
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether the calendar day of t lies within [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of calendar days covered by the period.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.Format(dateLayout) + ", " + p.End.Format(dateLayout) + "]"
}

// MonthYear pins a query to one calendar month.
type MonthYear struct {
	Month time.Month
	Year  int
}

// Selector describes which period a caller wants. When Month is set it takes
// precedence over Kind and Offset.
type Selector struct {
	Kind   Kind
	Offset int
	Month  *MonthYear
}

// Day truncates t to its calendar day at UTC midnight, keeping the
// year/month/day as observed in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }

// ParseDate parses a YYYY-MM-DD date into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Resolve returns the period of the given kind that lies offset periods
// before the one containing ref. Offset 0 is the period containing ref.
func Resolve(kind Kind, offset int, ref time.Time) (Period, error) {
	if offset < 0 {
		return Period{}, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	ref = Day(ref)
	switch kind {
	case Week:
		return weekPeriod(ref.AddDate(0, 0, -daysPerWeek*offset)), nil
	case Month:
		first := time.Date(ref.Year(), ref.Month()-time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		return monthPeriod(first), nil
	case Quarter:
		qStart := ((ref.Month()-1)/monthsPerQuarter)*monthsPerQuarter + 1
		first := time.Date(ref.Year(), qStart-time.Month(monthsPerQuarter*offset), 1, 0, 0, 0, 0, time.UTC)
		return quarterPeriod(first), nil
	default:
		return Period{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// ForMonth returns the calendar month period for an explicit month and year.
func ForMonth(month time.Month, year int) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}
	return monthPeriod(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)), nil
}

// ResolveSelector resolves sel relative to ref. An explicit month always
// wins over the kind/offset pair.
func ResolveSelector(sel Selector, ref time.Time) (Period, error) {
	if sel.Month != nil {
		return ForMonth(sel.Month.Month, sel.Month.Year)
	}
	return Resolve(sel.Kind, sel.Offset, ref)
}

// weekPeriod returns the week containing day.
func weekPeriod(day time.Time) Period {
	back := (int(day.Weekday()) - int(WeekStart) + daysPerWeek) % daysPerWeek
	start := day.AddDate(0, 0, -back)
	end := start.AddDate(0, 0, daysPerWeek-1)
	return Period{
		Kind:  Week,
		Start: start,
		End:   end,
		Label: start.Format("Jan 2") + " - " + end.Format("Jan 2, 2006"),
	}
}

func monthPeriod(first time.Time) Period {
	return Period{
		Kind:  Month,
		Start: first,
		End:   first.AddDate(0, 1, -1),
		Label: first.Format("January 2006"),
	}
}

func quarterPeriod(first time.Time) Period {
	q := (int(first.Month())-1)/monthsPerQuarter + 1
	return Period{
		Kind:  Quarter,
		Start: first,
		End:   first.AddDate(0, monthsPerQuarter, -1),
		Label: fmt.Sprintf("Q%d %d", q, first.Year()),
	}
}
