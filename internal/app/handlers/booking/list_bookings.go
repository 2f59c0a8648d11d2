package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"grabit/internal/app/dto"
	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	"grabit/internal/app/policies"
	"grabit/internal/app/queries"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
)

const (
	ListRequesterBookingsKey = "booking.list_requester"
	ListOwnerBookingsKey     = "booking.list_owner"
)

// ListRequesterBookingsQuery lists the bookings a user has made, newest first.
type ListRequesterBookingsQuery struct {
	Requester string `validate:"notblank"`
}

func (q ListRequesterBookingsQuery) Key() string     { return ListRequesterBookingsKey }
func (q ListRequesterBookingsQuery) ActorID() string { return q.Requester }

// ListOwnerBookingsQuery lists bookings received on the owner's listings.
// An empty Status returns every status.
type ListOwnerBookingsQuery struct {
	Owner  string `validate:"notblank"`
	Status string
}

func (q ListOwnerBookingsQuery) Key() string     { return ListOwnerBookingsKey }
func (q ListOwnerBookingsQuery) ActorID() string { return q.Owner }

type ListRequesterBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Listings   policies.ListingProvider
	Logger     *slog.Logger
}

func (h *ListRequesterBookingsHandler) Handle(ctx context.Context, q ListRequesterBookingsQuery) (dto.BookingCollection, error) {
	requester := strings.TrimSpace(q.Requester)
	if requester == "" {
		return dto.BookingCollection{}, domainbooking.ErrMissingParameter
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	logger := defaultLogger(h.Logger)

	bookings, err := unit.Bookings().ListByRequester(execCtx, requester)
	if err != nil {
		return dto.BookingCollection{}, handlersupport.Internal(ctx, logger, "list requester bookings", err, "requester", requester)
	}

	// titles are decoration; a missing listing must not hide the booking
	titles := make(map[domainlistings.Ref]*domainlistings.Listing)
	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		listing, seen := titles[b.Listing]
		if !seen && h.Listings != nil {
			if l, lerr := h.Listings.Listing(execCtx, b.Listing); lerr == nil {
				listing = l
			}
			titles[b.Listing] = listing
		}
		items = append(items, dto.MapBookingSummary(b, listing))
	}
	sortNewestFirst(items)

	logger.DebugContext(ctx, "requester bookings listed", "requester", requester, "count", len(items))
	return dto.BookingCollection{Items: items}, nil
}

type ListOwnerBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Listings   policies.ListingProvider
	Logger     *slog.Logger
}

func (h *ListOwnerBookingsHandler) Handle(ctx context.Context, q ListOwnerBookingsQuery) (dto.BookingCollection, error) {
	owner := strings.TrimSpace(q.Owner)
	if owner == "" {
		return dto.BookingCollection{}, domainbooking.ErrMissingParameter
	}
	var filter domainbooking.Status
	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, err := domainbooking.ParseStatus(raw)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		filter = status
	}
	if h.Listings == nil {
		return dto.BookingCollection{}, handlersupport.ErrServer
	}
	logger := defaultLogger(h.Logger)

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	owned, err := h.Listings.ListByOwner(execCtx, domainlistings.OwnerID(owner))
	if err != nil {
		return dto.BookingCollection{}, handlersupport.Internal(ctx, logger, "list owner listings", err, "owner", owner)
	}

	items := make([]dto.BookingSummary, 0)
	for _, listing := range owned {
		bookings, err := unit.Bookings().ListByListing(execCtx, listing.Ref)
		if err != nil {
			return dto.BookingCollection{}, handlersupport.Internal(ctx, logger, "list listing bookings", err, "listing", listing.Ref.String())
		}
		for _, b := range bookings {
			if filter != "" && b.Status != filter {
				continue
			}
			items = append(items, dto.MapBookingSummary(b, listing))
		}
	}
	sortNewestFirst(items)

	logger.DebugContext(ctx, "owner bookings listed", "owner", owner, "count", len(items), "status", string(filter))
	return dto.BookingCollection{Items: items}, nil
}

func sortNewestFirst(items []dto.BookingSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var (
	_ queries.Handler[ListRequesterBookingsQuery, dto.BookingCollection] = (*ListRequesterBookingsHandler)(nil)
	_ queries.Handler[ListOwnerBookingsQuery, dto.BookingCollection]     = (*ListOwnerBookingsHandler)(nil)
	_ middleware.ActorMessage                                            = ListOwnerBookingsQuery{}
)
