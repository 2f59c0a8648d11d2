package availability

import (
	"context"
	"log/slog"
	"strings"

	"grabit/internal/app/dto"
	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/policies"
	"grabit/internal/app/queries"
	"grabit/internal/app/uow"
	domainavailability "grabit/internal/domain/availability"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

const CheckAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	ListingType string `validate:"notblank"`
	ListingID   string `validate:"notblank"`
	StartDate   string `validate:"notblank"`
	EndDate     string `validate:"notblank"`
}

func (q CheckAvailabilityQuery) Key() string { return CheckAvailabilityKey }

// CheckAvailabilityHandler answers whether a listing is free for a date range.
// It reads committed state only and takes no locks.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Listings   policies.ListingProvider
	Logger     *slog.Logger
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	for _, v := range []string{q.ListingType, q.ListingID, q.StartDate, q.EndDate} {
		if strings.TrimSpace(v) == "" {
			return dto.Availability{}, domainbooking.ErrMissingParameter
		}
	}
	ref, err := domainlistings.NewRef(q.ListingType, q.ListingID)
	if err != nil {
		return dto.Availability{}, err
	}
	dr, err := daterange.Parse(q.StartDate, q.EndDate)
	if err != nil {
		return dto.Availability{}, err
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := handlersupport.LookupListing(ctx, h.Listings, logger, ref); err != nil {
		return dto.Availability{}, err
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, handlersupport.Internal(ctx, logger, "open read unit", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	available, err := domainavailability.NewResolver(unit.Bookings()).IsAvailable(execCtx, ref, dr, "")
	if err != nil {
		return dto.Availability{}, handlersupport.Internal(ctx, logger, "resolve availability", err, "listing", ref.String())
	}

	return dto.Availability{
		ListingType: string(ref.Type),
		ListingID:   string(ref.ID),
		StartDate:   dr.Start.Format(daterange.Layout),
		EndDate:     dr.End.Format(daterange.Layout),
		Available:   available,
	}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
