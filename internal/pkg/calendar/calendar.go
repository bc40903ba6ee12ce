// Package calendar resolves local calendar dates, the partition key for all
// per-day progress aggregation.
package calendar

import (
	"fmt"
	"time"
	// Per-user zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/jinzhu/now"

	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

// DateLayout is the format of a date key
const DateLayout = "2006-01-02"

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

// Now returns the pinned instant
func (c FixedClock) Now() time.Time { return c.T }

// LocalDateKey formats the wall-clock date of instant as seen in zone.
// A nil zone means time.Local.
func LocalDateKey(instant time.Time, zone *time.Location) string {
	if zone == nil {
		zone = time.Local
	}
	return instant.In(zone).Format(DateLayout)
}

// Calendar answers date questions for one time zone
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// New creates a Calendar. Nil arguments fall back to the system clock and time.Local.
func New(clock Clock, loc *time.Location) *Calendar {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{clock: clock, loc: loc}
}

// In returns a calendar for another zone sharing the same clock
func (c *Calendar) In(loc *time.Location) *Calendar {
	return New(c.clock, loc)
}

// Location returns the calendar zone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the calendar zone
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns today's date key
func (c *Calendar) Today() string {
	return LocalDateKey(c.clock.Now(), c.loc)
}

// DayStart returns local midnight at the start of date
func (c *Calendar) DayStart(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(apperrors.ErrInvalidDate, fmt.Sprintf("invalid date %q", date))
	}
	return now.With(t).BeginningOfDay(), nil
}

// Cutoff returns the last instant of date in the calendar zone. A day that is
// not complete after its cutoff counts as failed.
func (c *Calendar) Cutoff(date string) (time.Time, error) {
	start, err := c.DayStart(date)
	if err != nil {
		return time.Time{}, err
	}
	return now.With(start).EndOfDay(), nil
}

// Passed reports whether the cutoff of date lies in the past
func (c *Calendar) Passed(date string) (bool, error) {
	cutoff, err := c.Cutoff(date)
	if err != nil {
		return false, err
	}
	return c.Now().After(cutoff), nil
}

// AddDays shifts a date key by n calendar days
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", apperrors.NewValidationError(apperrors.ErrInvalidDate, fmt.Sprintf("invalid date %q", date))
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// Yesterday returns the date key before today
func (c *Calendar) Yesterday() string {
	// today is always a well-formed key
	y, _ := AddDays(c.Today(), -1)
	return y
}
