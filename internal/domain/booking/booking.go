package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/events"
	"grabit/internal/domain/shared/money"
)

var (
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrPastDate          = errors.New("booking: start date is in the past")
	ErrSelfBooking       = errors.New("booking: cannot book your own listing")
	ErrNotAuthorized     = errors.New("booking: actor is not allowed to change this booking")
	ErrConflict          = errors.New("booking: dates overlap a confirmed booking")
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	ErrMissingParameter  = errors.New("booking: missing parameter")
)

type BookingID string

type Booking struct {
	ID         BookingID
	Listing    listings.Ref
	Requester  string
	Range      daterange.DateRange
	TotalPrice money.Money
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByRequester(ctx context.Context, requester string) ([]*Booking, error)
	ListByListing(ctx context.Context, ref listings.Ref) ([]*Booking, error)
	ConfirmedOverlapping(ctx context.Context, ref listings.Ref, dr daterange.DateRange, exclude BookingID) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	Listing   *listings.Listing
	Requester string
	Range     daterange.DateRange
	Now       time.Time
}

// NewBooking builds a pending booking request. Availability is not checked here:
// overlapping pending requests are allowed and resolved at confirmation.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id is required")
	}
	requester := strings.TrimSpace(params.Requester)
	if requester == "" {
		return nil, ErrMissingParameter
	}
	if params.Listing == nil {
		return nil, listings.ErrListingNotFound
	}
	if err := ValidateDateRange(params.Range, params.Now); err != nil {
		return nil, err
	}
	if params.Listing.OwnedBy(requester) {
		return nil, ErrSelfBooking
	}
	now := params.Now.UTC()
	return &Booking{
		ID:         params.ID,
		Listing:    params.Listing.Ref,
		Requester:  requester,
		Range:      params.Range,
		TotalPrice: QuoteTotal(params.Listing, params.Range),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Confirm moves a pending booking to confirmed. Overlap with other confirmed
// bookings must be checked by the caller under the listing lock.
func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.Record(StatusChanged(b, b.UpdatedAt))
	return nil
}

// CancelByOwner cancels on behalf of the listing owner and raises a status event.
func (b *Booking) CancelByOwner(now time.Time) error {
	if err := b.transition(StatusCanceled, now); err != nil {
		return err
	}
	b.Record(StatusChanged(b, b.UpdatedAt))
	return nil
}

// CancelByRequester cancels on behalf of the renter. Renter cancellations are
// not pushed to the notification sink.
func (b *Booking) CancelByRequester(now time.Time) error {
	return b.transition(StatusCanceled, now)
}

func (b *Booking) RequestedBy(actor string) bool {
	return actor != "" && b.Requester == actor
}

// Clone returns a copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:         b.ID,
		Listing:    b.Listing,
		Requester:  b.Requester,
		Range:      b.Range,
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Version:    b.Version,
	}
}

func (b *Booking) transition(target Status, now time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	b.Status = target
	b.UpdatedAt = now.UTC()
	return nil
}
