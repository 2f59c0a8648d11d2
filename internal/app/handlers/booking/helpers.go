package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
)

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// storageError passes through errors the caller can act on and hides the rest.
func storageError(ctx context.Context, logger *slog.Logger, op string, err error, id domainbooking.BookingID) error {
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, uow.ErrConcurrentUpdate),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return handlersupport.Internal(ctx, logger, op, err, "booking_id", id)
}

func loadBooking(ctx context.Context, repo domainbooking.Repository, logger *slog.Logger, id string) (*domainbooking.Booking, error) {
	booking, err := repo.ByID(ctx, domainbooking.BookingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, storageError(ctx, logger, "load booking", err, domainbooking.BookingID(id))
	}
	return booking, nil
}
