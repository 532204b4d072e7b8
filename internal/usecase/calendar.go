package usecase

import (
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

// Calendar pins the business time zone and clock used for date-only math.
type Calendar struct {
	Location           *time.Location
	LookaheadDays      int
	UpcomingWindowDays int
	Now                func() time.Time
}

func (c Calendar) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// today is the current civil date in the business time zone.
func (c Calendar) today() time.Time { return model.DateOf(c.now(), c.loc()) }

func (c Calendar) lookahead() int {
	if c.LookaheadDays <= 0 {
		return 400
	}
	return c.LookaheadDays
}

func (c Calendar) upcomingWindow() int {
	if c.UpcomingWindowDays <= 0 {
		return 7
	}
	return c.UpcomingWindowDays
}
