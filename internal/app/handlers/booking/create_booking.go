package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"grabit/internal/app/commands"
	handlersupport "grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	"grabit/internal/app/policies"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

const CreateBookingKey = "booking.create"

type CreateBookingCommand struct {
	ListingType string `validate:"notblank"`
	ListingID   string `validate:"notblank"`
	Requester   string `validate:"notblank"`
	StartDate   string `validate:"notblank"`
	EndDate     string `validate:"notblank"`
	IdemKey     string
}

func (c CreateBookingCommand) Key() string     { return CreateBookingKey }
func (c CreateBookingCommand) ActorID() string { return c.Requester }

// IdempotencyKey is scoped to the requester so two users can't collide.
func (c CreateBookingCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdemKey)
	if key == "" {
		return ""
	}
	return CreateBookingKey + ":" + strings.TrimSpace(c.Requester) + ":" + key
}

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	BookingID  string `json:"booking_id"`
	TotalPrice string `json:"total_price"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

type CreateBookingHandler struct {
	Listings policies.ListingProvider
	Now      func() time.Time
	NewID    func() string
	Logger   *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	if blank(cmd.ListingType, cmd.ListingID, cmd.Requester, cmd.StartDate, cmd.EndDate) {
		return nil, domainbooking.ErrMissingParameter
	}
	ref, err := domainlistings.NewRef(cmd.ListingType, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	dr, err := daterange.Parse(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Clock(h.Now)
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, err
	}

	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	listing, err := handlersupport.LookupListing(ctx, h.Listings, defaultLogger(h.Logger), ref)
	if err != nil {
		return nil, err
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(h.nextID()),
		Listing:   listing,
		Requester: cmd.Requester,
		Range:     dr,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, storageError(ctx, defaultLogger(h.Logger), "save booking", err, booking.ID)
	}

	defaultLogger(h.Logger).InfoContext(ctx, "booking requested",
		"booking_id", booking.ID,
		"listing", ref.String(),
		"requester", booking.Requester,
		"range", dr.String(),
		"total", booking.TotalPrice.String(),
	)

	return &CreateBookingResult{
		BookingID:  string(booking.ID),
		TotalPrice: booking.TotalPrice.Decimal(),
		Currency:   booking.TotalPrice.Currency,
		Status:     booking.Status.String(),
	}, nil
}

func (h *CreateBookingHandler) nextID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.ActorMessage = CreateBookingCommand{}
