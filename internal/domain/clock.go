package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// LoadDate is the calendar date of now in loc, as a UTC midnight so it
// compares equal to parsed observation dates.
func LoadDate(c clockwork.Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := c.Now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
