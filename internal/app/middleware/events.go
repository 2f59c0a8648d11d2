package middleware

import (
	"context"
	"log/slog"

	"grabit/internal/app/commands"
	"grabit/internal/app/outbox"
	"grabit/internal/app/policies"
	domainbooking "grabit/internal/domain/booking"
)

// EventDispatch publishes the events a command recorded once it has succeeded.
// Sink failures are logged and never change the command result.
func EventDispatch(notifier policies.Notifier, logger *slog.Logger) CommandMiddleware {
	if notifier == nil {
		panic("middleware: notifier required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			execCtx, collector := outbox.WithCollector(ctx)
			res, err := nextFn(execCtx, cmd)
			pending := collector.Drain()
			if err != nil {
				return nil, err
			}
			for _, ev := range pending {
				changed, ok := ev.(domainbooking.BookingStatusChanged)
				if !ok {
					logger.DebugContext(ctx, "event has no sink", "event", ev.EventName(), "aggregate_id", ev.AggregateID())
					continue
				}
				if pubErr := notifier.Publish(ctx, changed); pubErr != nil {
					logger.WarnContext(ctx, "booking status notification failed",
						"booking_id", changed.BookingID,
						"status", changed.Status,
						"error", pubErr,
					)
				}
			}
			return res, nil
		})
	}
}
