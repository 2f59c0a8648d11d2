package policies

import (
	"context"

	domainbooking "grabit/internal/domain/booking"
)

// Notifier pushes booking status changes to the real-time delivery layer.
// Delivery is best-effort; callers log failures and move on.
type Notifier interface {
	Publish(ctx context.Context, event domainbooking.BookingStatusChanged) error
}

type NotifierFunc func(ctx context.Context, event domainbooking.BookingStatusChanged) error

func (f NotifierFunc) Publish(ctx context.Context, event domainbooking.BookingStatusChanged) error {
	return f(ctx, event)
}
