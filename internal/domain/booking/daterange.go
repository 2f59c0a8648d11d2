package booking

import (
	"time"

	"grabit/internal/domain/shared/daterange"
)

// ValidateDateRange rejects inverted ranges and ranges starting before today.
func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if dr.StartsBefore(now.UTC()) {
		return ErrPastDate
	}
	return nil
}
