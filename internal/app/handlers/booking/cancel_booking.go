package booking

import (
	"context"
	"log/slog"
	"time"

	"grabit/internal/app/commands"
	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	"grabit/internal/app/outbox"
	"grabit/internal/app/policies"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
)

const (
	CancelBookingKey     = "booking.cancel"
	SelfCancelBookingKey = "booking.self_cancel"
)

// CancelBookingCommand is issued by the listing owner.
type CancelBookingCommand struct {
	BookingID string `validate:"notblank"`
	Actor     string `validate:"notblank"`
}

func (c CancelBookingCommand) Key() string     { return CancelBookingKey }
func (c CancelBookingCommand) ActorID() string { return c.Actor }

// SelfCancelBookingCommand is issued by the renter who made the request.
type SelfCancelBookingCommand struct {
	BookingID string `validate:"notblank"`
	Actor     string `validate:"notblank"`
}

func (c SelfCancelBookingCommand) Key() string     { return SelfCancelBookingKey }
func (c SelfCancelBookingCommand) ActorID() string { return c.Actor }

type CancelBookingHandler struct {
	Listings policies.ListingProvider
	Now      func() time.Time
	Logger   *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*BookingActionResult, error) {
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

	if err := booking.CancelByOwner(handlersupport.Clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, storageError(ctx, logger, "save booking", err, booking.ID)
	}
	outbox.Record(ctx, booking.DrainEvents()...)

	logger.InfoContext(ctx, "booking canceled by owner", "booking_id", booking.ID, "owner", cmd.Actor)
	return &BookingActionResult{BookingID: string(booking.ID), Status: booking.Status.String()}, nil
}

type SelfCancelBookingHandler struct {
	Now    func() time.Time
	Logger *slog.Logger
}

func (h *SelfCancelBookingHandler) Handle(ctx context.Context, cmd SelfCancelBookingCommand) (*BookingActionResult, error) {
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
	if !booking.RequestedBy(cmd.Actor) {
		return nil, domainbooking.ErrNotAuthorized
	}
	if err := booking.CancelByRequester(handlersupport.Clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, storageError(ctx, logger, "save booking", err, booking.ID)
	}

	logger.InfoContext(ctx, "booking canceled by requester", "booking_id", booking.ID, "requester", cmd.Actor)
	return &BookingActionResult{BookingID: string(booking.ID), Status: booking.Status.String()}, nil
}

func defaultLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ commands.Handler[CancelBookingCommand, *BookingActionResult]     = (*CancelBookingHandler)(nil)
	_ commands.Handler[SelfCancelBookingCommand, *BookingActionResult] = (*SelfCancelBookingHandler)(nil)
	_ middleware.ActorMessage                                          = CancelBookingCommand{}
	_ middleware.ActorMessage                                          = SelfCancelBookingCommand{}
)
