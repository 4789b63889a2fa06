// Package calendar does date arithmetic anchored to an explicit IANA zone.
// Nothing here reads the host zone or the wall clock; "now" is always
// passed in.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // zones resolve the same on hosts without zoneinfo
)

// DateLayout is the calendar date form used throughout the service.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LoadZone resolves an IANA zone name such as "America/Chicago".
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseDate parses a strict YYYY-MM-DD date as local midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if !isoDate.MatchString(date) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, date)
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t, nil
}

// Format renders t as a calendar date in its own location.
func Format(t time.Time) string { return t.Format(DateLayout) }

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays moves a local midnight by whole calendar days, so DST shifts
// never push the result onto a neighbouring date.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// WeeksBefore returns the date n weeks before target. The weekday is
// always preserved.
func WeeksBefore(target time.Time, n int) time.Time {
	return AddDays(target, -7*n)
}

// HistoryWindow is the inclusive range [target-days, target-1].
func HistoryWindow(target time.Time, days int) (from, to time.Time) {
	return AddDays(target, -days), AddDays(target, -1)
}

// SelectableRange is [today, today+maxDaysAhead] in loc.
func SelectableRange(now time.Time, loc *time.Location, maxDaysAhead int) (start, end time.Time) {
	start = StartOfDay(now, loc)
	return start, AddDays(start, maxDaysAhead)
}

// InSelectableWindow reports whether date falls within SelectableRange.
func InSelectableWindow(date, now time.Time, loc *time.Location, maxDaysAhead int) bool {
	start, end := SelectableRange(now, loc, maxDaysAhead)
	return !date.Before(start) && !date.After(end)
}

// IsHistorical reports whether date is strictly before today in loc.
func IsHistorical(date, now time.Time, loc *time.Location) bool {
	return date.Before(StartOfDay(now, loc))
}
