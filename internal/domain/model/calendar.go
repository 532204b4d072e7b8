package model

import "time"

// Calendar dates are carried as time.Time at 00:00 UTC holding the civil date,
// so two values are the same delivery day iff they are Equal.

// DateOf truncates an instant to its civil date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CivilDate re-anchors a value that already holds a civil date (e.g. a
// scanned DATE column) without shifting it through a time zone.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(date time.Time, n int) time.Time { return date.AddDate(0, 0, n) }

// DaysBetween counts whole days from a to b for civil dates.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}

func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// DeliveryMode narrows the allowed weekdays.
type DeliveryMode string

const (
	DeliveryModeDaily     DeliveryMode = "daily"
	DeliveryModeAlternate DeliveryMode = "alternate"
	DeliveryModeWeekdays  DeliveryMode = "weekdays"
)

func (m DeliveryMode) Valid() bool {
	switch m {
	case DeliveryModeDaily, DeliveryModeAlternate, DeliveryModeWeekdays:
		return true
	}
	return false
}

// Schedule is the effective delivery policy of one subscription.
type Schedule struct {
	Days   WeekdaySet
	Mode   DeliveryMode
	Anchor time.Time // civil start date; alternate mode keeps even offsets from it
	Skip   map[time.Time]struct{}
}

// Allows reports whether a civil date is a delivery day under the schedule.
func (s Schedule) Allows(date time.Time) bool {
	days := s.Days
	if s.Mode == DeliveryModeWeekdays {
		days &= MonToFri
	}
	if !days.Has(date.Weekday()) {
		return false
	}
	if s.Mode == DeliveryModeAlternate {
		off := DaysBetween(s.Anchor, date)
		if off%2 != 0 {
			return false
		}
	}
	if _, skipped := s.Skip[date]; skipped {
		return false
	}
	return true
}

// Empty reports whether no weekday can ever match.
func (s Schedule) Empty() bool {
	days := s.Days
	if s.Mode == DeliveryModeWeekdays {
		days &= MonToFri
	}
	return days.Empty()
}

// Candidates walks forward from cursor collecting up to n delivery days,
// giving up after lookahead days.
func (s Schedule) Candidates(cursor time.Time, n, lookahead int) []time.Time {
	if n <= 0 || s.Empty() {
		return nil
	}
	out := make([]time.Time, 0, n)
	for i := 0; i < lookahead && len(out) < n; i++ {
		d := AddDays(cursor, i)
		if s.Allows(d) {
			out = append(out, d)
		}
	}
	return out
}
