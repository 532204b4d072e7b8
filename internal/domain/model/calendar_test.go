//go:build !integration

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestDateOf(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	t.Run("should drop the time of day", func(t *testing.T) {
		got := DateOf(time.Date(2025, 3, 3, 18, 45, 12, 0, time.UTC), time.UTC)
		assert.True(t, got.Equal(date(2025, 3, 3)))
	})

	t.Run("should use the civil date of the configured zone", func(t *testing.T) {
		// 20:00 UTC is already the next morning in India.
		got := DateOf(time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC), ist)
		assert.True(t, got.Equal(date(2025, 3, 4)))
	})
}

func TestWeekdaySet(t *testing.T) {
	t.Run("should parse short and long tags", func(t *testing.T) {
		s, err := ParseWeekdays([]string{"Mon", "wednesday", "FRI"})
		require.NoError(t, err)
		assert.Equal(t, NewWeekdaySet(time.Monday, time.Wednesday, time.Friday), s)
		assert.Equal(t, []string{"Mon", "Wed", "Fri"}, s.Tags())
		assert.Equal(t, 3, s.Len())
	})

	t.Run("should reject unknown tags", func(t *testing.T) {
		_, err := ParseWeekdays([]string{"Funday"})
		assert.Error(t, err)
	})

	t.Run("default set excludes sunday", func(t *testing.T) {
		assert.False(t, MonToSat.Has(time.Sunday))
		assert.Equal(t, 6, MonToSat.Len())
		assert.Equal(t, "Mon,Tue,Wed,Thu,Fri,Sat", MonToSat.String())
	})
}

func TestScheduleCandidates(t *testing.T) {
	monday := date(2025, 3, 3)

	t.Run("should collect the next Mon/Wed/Fri occurrences", func(t *testing.T) {
		s := Schedule{Days: NewWeekdaySet(time.Monday, time.Wednesday, time.Friday), Mode: DeliveryModeDaily, Anchor: monday}
		got := s.Candidates(monday, 6, 400)
		require.Len(t, got, 6)
		want := []time.Time{
			date(2025, 3, 3), date(2025, 3, 5), date(2025, 3, 7),
			date(2025, 3, 10), date(2025, 3, 12), date(2025, 3, 14),
		}
		assert.Equal(t, want, got)
	})

	t.Run("should honour the weekday set on every candidate", func(t *testing.T) {
		days := NewWeekdaySet(time.Tuesday, time.Saturday)
		s := Schedule{Days: days, Mode: DeliveryModeDaily, Anchor: monday}
		for _, d := range s.Candidates(monday, 20, 400) {
			assert.True(t, days.Has(d.Weekday()), "unexpected weekday %s", d.Weekday())
		}
	})

	t.Run("empty weekday set returns immediately", func(t *testing.T) {
		s := Schedule{Days: 0, Mode: DeliveryModeDaily, Anchor: monday}
		assert.True(t, s.Empty())
		assert.Empty(t, s.Candidates(monday, 10, 400))
	})

	t.Run("weekdays mode drops saturday", func(t *testing.T) {
		s := Schedule{Days: MonToSat, Mode: DeliveryModeWeekdays, Anchor: monday}
		got := s.Candidates(monday, 6, 400)
		require.Len(t, got, 6)
		assert.True(t, got[5].Equal(date(2025, 3, 10)))
	})

	t.Run("weekdays mode on a weekend-only plan is empty", func(t *testing.T) {
		s := Schedule{Days: NewWeekdaySet(time.Saturday, time.Sunday), Mode: DeliveryModeWeekdays, Anchor: monday}
		assert.True(t, s.Empty())
	})

	t.Run("alternate mode keeps even offsets from the anchor", func(t *testing.T) {
		s := Schedule{Days: MonToSat, Mode: DeliveryModeAlternate, Anchor: monday}
		got := s.Candidates(monday, 4, 400)
		assert.Equal(t, []time.Time{date(2025, 3, 3), date(2025, 3, 5), date(2025, 3, 7), date(2025, 3, 11)}, got)
	})

	t.Run("skip dates are excluded", func(t *testing.T) {
		s := Schedule{
			Days:   MonToSat,
			Mode:   DeliveryModeDaily,
			Anchor: monday,
			Skip:   map[time.Time]struct{}{date(2025, 3, 4): {}},
		}
		got := s.Candidates(monday, 2, 400)
		assert.Equal(t, []time.Time{date(2025, 3, 3), date(2025, 3, 5)}, got)
	})

	t.Run("lookahead bounds the walk", func(t *testing.T) {
		s := Schedule{Days: NewWeekdaySet(time.Monday), Mode: DeliveryModeDaily, Anchor: monday}
		assert.Len(t, s.Candidates(monday, 100, 14), 2)
	})
}
