// Package availability holds the per-date room accounting used by every
// booking flow.  A Map maps a calendar date ("YYYY-MM-DD") to the number of
// rooms still bookable on that date.  The functions here are pure; callers
// are responsible for reading a fresh snapshot and persisting the result
// inside the same transaction.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// ErrInvalidRange is returned by ExpandDates for a bad start date or a
// non-positive day count.
var ErrInvalidRange = errors.New("invalid date range")

// Map is the remaining room count per date for a single accommodation.
type Map map[string]int

// Clone returns an independent copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for d, n := range m {
		out[d] = n
	}
	return out
}

// ParseDate parses a YYYY-MM-DD string on the UTC calendar.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidRange, s)
	}
	return t, nil
}

// ExpandDates returns the ordered dates [start, start+days-1].  The walk is
// done with AddDate on UTC midnight so daylight saving shifts can never
// skip or repeat a day.
func ExpandDates(start string, days int) ([]string, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be >= 1, got %d", ErrInvalidRange, days)
	}
	t, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, t.AddDate(0, 0, i).Format(DateLayout))
	}
	return out, nil
}

// Check reports whether rooms can be taken on every date.  A date absent
// from m counts as zero rooms.  When unavailable, short is the first date
// that cannot satisfy the request.
func Check(m Map, dates []string, rooms int) (ok bool, short string) {
	for _, d := range dates {
		if m[d] < rooms {
			return false, d
		}
	}
	return true, ""
}

// MaxRooms returns the largest room count bookable across all dates, i.e.
// the minimum remaining value in the range.  Missing dates yield zero.
func MaxRooms(m Map, dates []string) int {
	if len(dates) == 0 {
		return 0
	}
	n := m[dates[0]]
	for _, d := range dates[1:] {
		if m[d] < n {
			n = m[d]
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// Commit subtracts delta from every date.  It does not validate; run Check
// first.
func Commit(m Map, dates []string, delta int) {
	for _, d := range dates {
		m[d] -= delta
	}
}

// Reverse gives rooms back on every date.  Commit followed by Reverse with
// the same arguments restores m exactly.
func Reverse(m Map, dates []string, rooms int) {
	for _, d := range dates {
		m[d] += rooms
	}
}

// Hold is the footprint of one active booking.
type Hold struct {
	StartDate string
	Days      int
	Rooms     int
}

// Derive recomputes remaining rooms from nominal capacity and the active
// holds.  Holds that fall outside the capacity calendar are ignored for
// dates the accommodation never offered.
func Derive(capacity Map, holds []Hold) (Map, error) {
	out := capacity.Clone()
	for _, h := range holds {
		dates, err := ExpandDates(h.StartDate, h.Days)
		if err != nil {
			return nil, err
		}
		for _, d := range dates {
			if _, ok := out[d]; ok {
				out[d] -= h.Rooms
			}
		}
	}
	return out, nil
}

// Diff lists the dates whose values differ between a and b, in the order of
// b's keys sorted ascending.
func Diff(a, b Map) []string {
	var out []string
	for d, n := range b {
		if a[d] != n {
			out = append(out, d)
		}
	}
	sort.Strings(out) // YYYY-MM-DD sorts lexically
	return out
}

// Union merges two date lists without duplicates, keeping first-seen order.
func Union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
