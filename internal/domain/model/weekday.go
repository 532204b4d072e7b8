package model

import (
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a bitmask of allowed delivery weekdays, bit i = time.Weekday(i).
type WeekdaySet uint8

var weekdayTags = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const (
	// MonToSat is the default delivery policy: every day except Sunday.
	MonToSat WeekdaySet = 0b1111110
	// MonToFri is the set used by the "weekdays" delivery mode.
	MonToFri WeekdaySet = 0b0111110
)

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// ParseWeekdays accepts tags like "Mon", "monday" or "MON".
func ParseWeekdays(tags []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, raw := range tags {
		t := strings.ToLower(strings.TrimSpace(raw))
		if len(t) < 3 {
			return 0, fmt.Errorf("unknown weekday %q", raw)
		}
		found := false
		for i, tag := range weekdayTags {
			if strings.ToLower(tag) == t[:3] {
				s |= 1 << uint(i)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown weekday %q", raw)
		}
	}
	return s, nil
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) Empty() bool             { return s&0b1111111 == 0 }

func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Tags renders the set Monday-first, the way plans are displayed.
func (s WeekdaySet) Tags() []string {
	out := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			out = append(out, weekdayTags[d])
		}
	}
	return out
}

func (s WeekdaySet) String() string { return strings.Join(s.Tags(), ",") }
