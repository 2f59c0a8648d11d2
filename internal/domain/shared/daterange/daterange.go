package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO calendar date format used at every boundary.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: start date must not be after end date")
)

// DateRange is a closed interval of calendar dates [Start, End].
// Both bounds are stored as midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (DateRange, error) {
	s, err := time.Parse(Layout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q", ErrInvalidRange, start)
	}
	e, err := time.Parse(Layout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q", ErrInvalidRange, end)
	}
	return New(s, e)
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.Start.After(dr.End) {
		return ErrInvalidRange
	}
	return nil
}

const secondsPerDay = 24 * 60 * 60

// Days is the exclusive day count End - Start. A single-day range yields 0.
// Bounds are midnight UTC, so whole Unix days are exact for any range.
func (dr DateRange) Days() int {
	return int((dr.End.Unix() - dr.Start.Unix()) / secondsPerDay)
}

// Overlaps reports whether the ranges share at least one calendar date.
// Touching boundaries count as overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !dr.End.Before(other.Start)
}

// StartsBefore reports whether the range begins on a date earlier than day.
func (dr DateRange) StartsBefore(day time.Time) bool {
	return dr.Start.Before(Day(day))
}

func (dr DateRange) String() string {
	return dr.Start.Format(Layout) + ".." + dr.End.Format(Layout)
}
