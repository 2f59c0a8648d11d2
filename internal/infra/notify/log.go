package notify

import (
	"context"
	"log/slog"

	domainbooking "grabit/internal/domain/booking"
)

// LogNotifier writes status changes to the application log. It is the sink
// used when no broker is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Publish(ctx context.Context, ev domainbooking.BookingStatusChanged) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "booking status changed",
		"booking_id", ev.BookingID,
		"status", ev.Status,
		"occurred_at", ev.At,
	)
	return nil
}
