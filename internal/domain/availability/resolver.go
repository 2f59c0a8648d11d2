package availability

import (
	"context"
	"errors"
	"fmt"

	domainbooking "grabit/internal/domain/booking"
	"grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

var ErrReaderMissing = errors.New("availability: booking reader not configured")

// ConfirmedReader is the slice of the booking store the resolver needs.
type ConfirmedReader interface {
	ConfirmedOverlapping(ctx context.Context, ref listings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error)
}

// Resolver answers "is this listing free for these dates" from the persisted
// booking set. It never caches: every call goes to the reader.
type Resolver struct {
	Bookings ConfirmedReader
}

func NewResolver(bookings ConfirmedReader) Resolver {
	return Resolver{Bookings: bookings}
}

// IsAvailable is false iff a confirmed booking of ref, other than exclude,
// shares at least one date with dr.
func (r Resolver) IsAvailable(ctx context.Context, ref listings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) (bool, error) {
	conflicts, err := r.Conflicts(ctx, ref, dr, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Conflicts returns the confirmed bookings that block dr.
func (r Resolver) Conflicts(ctx context.Context, ref listings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	if r.Bookings == nil {
		return nil, ErrReaderMissing
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	candidates, err := r.Bookings.ConfirmedOverlapping(ctx, ref, dr, exclude)
	if err != nil {
		return nil, fmt.Errorf("availability: load confirmed bookings for %s: %w", ref, err)
	}
	out := make([]*domainbooking.Booking, 0, len(candidates))
	for _, b := range candidates {
		if b == nil || b.ID == exclude || b.Listing != ref {
			continue
		}
		if !b.Status.BlocksCalendar() || !b.Range.Overlaps(dr) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
