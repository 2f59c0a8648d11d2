package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainbooking "grabit/internal/domain/booking"
	"grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

type MockReader struct{ mock.Mock }

func (m *MockReader) ConfirmedOverlapping(ctx context.Context, ref listings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	args := m.Called(ctx, ref, dr, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainbooking.Booking), args.Error(1)
}

var car = listings.Ref{Type: listings.TypeVehicle, ID: "car-1"}

func rng(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return dr
}

func stored(id string, ref listings.Ref, status domainbooking.Status, dr daterange.DateRange) *domainbooking.Booking {
	return &domainbooking.Booking{ID: domainbooking.BookingID(id), Listing: ref, Status: status, Range: dr}
}

func TestIsAvailableSharedBoundaryBlocks(t *testing.T) {
	confirmed := stored("b-1", car, domainbooking.StatusConfirmed, rng(t, "2024-07-01", "2024-07-10"))
	query := rng(t, "2024-07-10", "2024-07-12")

	reader := new(MockReader)
	reader.On("ConfirmedOverlapping", mock.Anything, car, query, domainbooking.BookingID("")).
		Return([]*domainbooking.Booking{confirmed}, nil)

	ok, err := NewResolver(reader).IsAvailable(context.Background(), car, query, "")
	require.NoError(t, err)
	assert.False(t, ok)
	reader.AssertExpectations(t)
}

func TestIsAvailableIgnoresLooseStoreResults(t *testing.T) {
	query := rng(t, "2024-07-11", "2024-07-12")
	other := listings.Ref{Type: listings.TypeProperty, ID: "car-1"}

	reader := new(MockReader)
	reader.On("ConfirmedOverlapping", mock.Anything, car, query, domainbooking.BookingID("b-self")).
		Return([]*domainbooking.Booking{
			stored("b-pending", car, domainbooking.StatusPending, rng(t, "2024-07-11", "2024-07-12")),
			stored("b-canceled", car, domainbooking.StatusCanceled, rng(t, "2024-07-11", "2024-07-12")),
			stored("b-other-listing", other, domainbooking.StatusConfirmed, rng(t, "2024-07-11", "2024-07-12")),
			stored("b-earlier", car, domainbooking.StatusConfirmed, rng(t, "2024-07-01", "2024-07-10")),
			stored("b-self", car, domainbooking.StatusConfirmed, rng(t, "2024-07-11", "2024-07-12")),
		}, nil)

	ok, err := NewResolver(reader).IsAvailable(context.Background(), car, query, "b-self")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConflictsReturnsBlockingBookings(t *testing.T) {
	query := rng(t, "2024-08-01", "2024-08-31")
	blocking := stored("b-9", car, domainbooking.StatusConfirmed, rng(t, "2024-08-15", "2024-09-02"))

	reader := new(MockReader)
	reader.On("ConfirmedOverlapping", mock.Anything, car, query, domainbooking.BookingID("")).
		Return([]*domainbooking.Booking{blocking}, nil)

	conflicts, err := NewResolver(reader).Conflicts(context.Background(), car, query, "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, domainbooking.BookingID("b-9"), conflicts[0].ID)
}

func TestIsAvailablePropagatesStoreErrors(t *testing.T) {
	query := rng(t, "2024-08-01", "2024-08-02")
	reader := new(MockReader)
	reader.On("ConfirmedOverlapping", mock.Anything, car, query, domainbooking.BookingID("")).
		Return(nil, errors.New("connection reset"))

	_, err := NewResolver(reader).IsAvailable(context.Background(), car, query, "")
	assert.ErrorContains(t, err, "connection reset")
}

func TestIsAvailableValidatesRange(t *testing.T) {
	reader := new(MockReader)
	_, err := NewResolver(reader).IsAvailable(context.Background(), car, daterange.DateRange{}, "")
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
	reader.AssertNotCalled(t, "ConfirmedOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolverWithoutReader(t *testing.T) {
	_, err := Resolver{}.IsAvailable(context.Background(), car, rng(t, "2024-08-01", "2024-08-02"), "")
	assert.ErrorIs(t, err, ErrReaderMissing)
}
