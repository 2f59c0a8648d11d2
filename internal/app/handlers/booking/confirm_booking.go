package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grabit/internal/app/commands"
	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	"grabit/internal/app/outbox"
	"grabit/internal/app/policies"
	"grabit/internal/app/uow"
	domainavailability "grabit/internal/domain/availability"
	domainbooking "grabit/internal/domain/booking"
)

const ConfirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	BookingID string `validate:"notblank"`
	Actor     string `validate:"notblank"`
}

func (c ConfirmBookingCommand) Key() string     { return ConfirmBookingKey }
func (c ConfirmBookingCommand) ActorID() string { return c.Actor }

type BookingActionResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// ConfirmBookingHandler accepts a pending request on behalf of the listing owner.
// The listing stays locked from the availability check until commit, so two
// overlapping requests can never both end up confirmed.
type ConfirmBookingHandler struct {
	Listings policies.ListingProvider
	Now      func() time.Time
	Logger   *slog.Logger
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*BookingActionResult, error) {
	if blank(cmd.BookingID, cmd.Actor) {
		return nil, domainbooking.ErrMissingParameter
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	logger := defaultLogger(h.Logger)

	booking, err := loadBooking(ctx, unit.Bookings(), logger, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	listing, err := handlersupport.LookupListing(ctx, h.Listings, logger, booking.Listing)
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(cmd.Actor) {
		return nil, domainbooking.ErrNotAuthorized
	}

	if err := unit.LockListing(ctx, booking.Listing); err != nil {
		return nil, storageError(ctx, logger, "lock listing", err, booking.ID)
	}
	// another confirm may have committed while we waited for the lock
	booking, err = loadBooking(ctx, unit.Bookings(), logger, string(booking.ID))
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(domainbooking.StatusConfirmed) {
		return nil, domainbooking.ErrInvalidTransition
	}

	resolver := domainavailability.NewResolver(unit.Bookings())
	conflicts, err := resolver.Conflicts(ctx, booking.Listing, booking.Range, booking.ID)
	if err != nil {
		return nil, storageError(ctx, logger, "check availability", err, booking.ID)
	}
	if len(conflicts) > 0 {
		logger.InfoContext(ctx, "booking confirm rejected",
			"booking_id", booking.ID,
			"listing", booking.Listing.String(),
			"conflicting_booking_id", conflicts[0].ID,
		)
		return nil, fmt.Errorf("%w: booking %s", domainbooking.ErrConflict, conflicts[0].ID)
	}

	if err := booking.Confirm(handlersupport.Clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, storageError(ctx, logger, "save booking", err, booking.ID)
	}
	outbox.Record(ctx, booking.DrainEvents()...)

	logger.InfoContext(ctx, "booking confirmed",
		"booking_id", booking.ID,
		"listing", booking.Listing.String(),
		"owner", cmd.Actor,
	)

	return &BookingActionResult{BookingID: string(booking.ID), Status: booking.Status.String()}, nil
}

var _ commands.Handler[ConfirmBookingCommand, *BookingActionResult] = (*ConfirmBookingHandler)(nil)
var _ middleware.ActorMessage = ConfirmBookingCommand{}
