package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainlistings "grabit/internal/domain/listings"
)

// ErrServer hides collaborator and storage failures from clients.
var ErrServer = errors.New("server error")

// Internal logs err with detail and returns an error that classifies as ErrServer.
func Internal(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, msg, append(attrs, "error", err)...)
	return fmt.Errorf("%w: %s: %w", ErrServer, msg, err)
}

// LookupListing asks the provider for ref, keeping NotFound and mapping
// anything else to ErrServer.
func LookupListing(ctx context.Context, provider interface {
	Listing(ctx context.Context, ref domainlistings.Ref) (*domainlistings.Listing, error)
}, logger *slog.Logger, ref domainlistings.Ref) (*domainlistings.Listing, error) {
	if provider == nil {
		return nil, Internal(ctx, logger, "listing provider not configured", errors.New("nil provider"))
	}
	listing, err := provider.Listing(ctx, ref)
	if err != nil {
		if errors.Is(err, domainlistings.ErrListingNotFound) {
			return nil, err
		}
		return nil, Internal(ctx, logger, "listing lookup failed", err, "listing", ref.String())
	}
	if listing == nil {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing, nil
}

// Clock returns now or time.Now when now is nil, always in UTC.
func Clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
