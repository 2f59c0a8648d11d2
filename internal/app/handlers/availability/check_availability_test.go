package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabit/internal/app/dto"
	handlersupport "grabit/internal/app/handlers/support"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/money"
	"grabit/internal/infra/storage/memory"
)

var car = domainlistings.Ref{Type: domainlistings.TypeVehicle, ID: "car-1"}

type failingListings struct{}

func (failingListings) Listing(context.Context, domainlistings.Ref) (*domainlistings.Listing, error) {
	return nil, errors.New("connection refused")
}

func (failingListings) ListByOwner(context.Context, domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	return nil, nil
}

func setup(t *testing.T) (*CheckAvailabilityHandler, *memory.BookingStore) {
	t.Helper()
	catalog := memory.NewListingCatalog()
	require.NoError(t, catalog.Put(&domainlistings.Listing{Ref: car, Owner: "owner-1", Price: money.Must(10000, "USD")}))
	store := memory.NewBookingStore()
	return &CheckAvailabilityHandler{UoWFactory: memory.NewFactory(store), Listings: catalog}, store
}

func seed(t *testing.T, store *memory.BookingStore, id string, status domainbooking.Status, start, end string) {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), &domainbooking.Booking{
		ID:        domainbooking.BookingID(id),
		Listing:   car,
		Requester: "renter-1",
		Range:     dr,
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

func ask(h *CheckAvailabilityHandler, start, end string) (dto.Availability, error) {
	return h.Handle(context.Background(), CheckAvailabilityQuery{
		ListingType: "vehicle",
		ListingID:   "car-1",
		StartDate:   start,
		EndDate:     end,
	})
}

func TestSharedBoundaryIsUnavailable(t *testing.T) {
	h, store := setup(t)
	seed(t, store, "b-1", domainbooking.StatusConfirmed, "2024-07-01", "2024-07-10")

	res, err := ask(h, "2024-07-10", "2024-07-12")
	require.NoError(t, err)
	assert.False(t, res.Available)

	res, err = ask(h, "2024-07-11", "2024-07-12")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "2024-07-11", res.StartDate)
}

func TestPendingAndCanceledNeverBlock(t *testing.T) {
	h, store := setup(t)
	seed(t, store, "b-1", domainbooking.StatusPending, "2024-07-01", "2024-07-10")
	seed(t, store, "b-2", domainbooking.StatusCanceled, "2024-07-01", "2024-07-10")

	res, err := ask(h, "2024-07-05", "2024-07-06")
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestCheckAvailabilityErrors(t *testing.T) {
	h, _ := setup(t)

	_, err := ask(h, "2024-07-12", "2024-07-10")
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = ask(h, "", "2024-07-10")
	assert.ErrorIs(t, err, domainbooking.ErrMissingParameter)

	_, err = h.Handle(context.Background(), CheckAvailabilityQuery{ListingType: "boat", ListingID: "1", StartDate: "2024-07-01", EndDate: "2024-07-02"})
	assert.ErrorIs(t, err, domainlistings.ErrInvalidListingType)

	_, err = h.Handle(context.Background(), CheckAvailabilityQuery{ListingType: "property", ListingID: "car-1", StartDate: "2024-07-01", EndDate: "2024-07-02"})
	assert.ErrorIs(t, err, domainlistings.ErrListingNotFound)

	h.Listings = failingListings{}
	_, err = ask(h, "2024-07-01", "2024-07-02")
	assert.ErrorIs(t, err, handlersupport.ErrServer)
}
