package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/money"
)

var today = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

func vehicle() *listings.Listing {
	return &listings.Listing{
		Ref:   listings.Ref{Type: listings.TypeVehicle, ID: "car-1"},
		Owner: "owner-1",
		Price: money.Must(10000, "USD"),
	}
}

func rangeOf(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return dr
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{
		ID:        "b-1",
		Listing:   vehicle(),
		Requester: "renter-1",
		Range:     rangeOf(t, "2024-06-01", "2024-06-04"),
		Now:       today,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingPricesPerDay(t *testing.T) {
	b := newPending(t)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, money.Must(30000, "USD"), b.TotalPrice)
	assert.Equal(t, "300.00", b.TotalPrice.Decimal())
	assert.Equal(t, listings.Ref{Type: listings.TypeVehicle, ID: "car-1"}, b.Listing)
	assert.Empty(t, b.PendingEvents())
}

func TestNewBookingSingleDayIsFree(t *testing.T) {
	b, err := NewBooking(CreateParams{
		ID:        "b-2",
		Listing:   vehicle(),
		Requester: "renter-1",
		Range:     rangeOf(t, "2024-06-01", "2024-06-01"),
		Now:       today,
	})
	require.NoError(t, err)
	assert.True(t, b.TotalPrice.IsZero())
}

func TestNewBookingPricesMultiCenturyRange(t *testing.T) {
	b, err := NewBooking(CreateParams{
		ID:        "b-long",
		Listing:   vehicle(),
		Requester: "renter-1",
		Range:     rangeOf(t, "2027-01-01", "9999-12-31"),
		Now:       today,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2912077*10000), b.TotalPrice.Amount)
	assert.Equal(t, "291207700.00", b.TotalPrice.Decimal())
}

func TestNewBookingPropertyUsesFlatPriceTimesDays(t *testing.T) {
	property := &listings.Listing{
		Ref:   listings.Ref{Type: listings.TypeProperty, ID: "flat-9"},
		Owner: "owner-2",
		Price: money.Must(50000, "USD"),
	}
	b, err := NewBooking(CreateParams{
		ID:        "b-3",
		Listing:   property,
		Requester: "renter-1",
		Range:     rangeOf(t, "2024-06-01", "2024-06-03"),
		Now:       today,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), b.TotalPrice.Amount)
}

func TestNewBookingRejections(t *testing.T) {
	cases := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{
			name:   "self booking",
			params: CreateParams{ID: "x", Listing: vehicle(), Requester: "owner-1", Range: rangeOf(t, "2024-06-01", "2024-06-02"), Now: today},
			want:   ErrSelfBooking,
		},
		{
			name:   "past start",
			params: CreateParams{ID: "x", Listing: vehicle(), Requester: "renter-1", Range: rangeOf(t, "2024-05-19", "2024-06-02"), Now: today},
			want:   ErrPastDate,
		},
		{
			name:   "inverted range",
			params: CreateParams{ID: "x", Listing: vehicle(), Requester: "renter-1", Range: daterange.DateRange{Start: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}, Now: today},
			want:   daterange.ErrInvalidRange,
		},
		{
			name:   "missing requester",
			params: CreateParams{ID: "x", Listing: vehicle(), Requester: " ", Range: rangeOf(t, "2024-06-01", "2024-06-02"), Now: today},
			want:   ErrMissingParameter,
		},
		{
			name:   "missing listing",
			params: CreateParams{ID: "x", Requester: "renter-1", Range: rangeOf(t, "2024-06-01", "2024-06-02"), Now: today},
			want:   listings.ErrListingNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBooking(tc.params)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStartingTodayIsAllowed(t *testing.T) {
	_, err := NewBooking(CreateParams{
		ID:        "b-today",
		Listing:   vehicle(),
		Requester: "renter-1",
		Range:     rangeOf(t, "2024-05-20", "2024-05-21"),
		Now:       today,
	})
	assert.NoError(t, err)
}

func TestConfirmRecordsStatusEvent(t *testing.T) {
	b := newPending(t)
	later := today.Add(time.Hour)

	require.NoError(t, b.Confirm(later))

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, later, b.UpdatedAt)
	evs := b.DrainEvents()
	require.Len(t, evs, 1)
	ev, ok := evs[0].(BookingStatusChanged)
	require.True(t, ok)
	assert.Equal(t, BookingID("b-1"), ev.BookingID)
	assert.Equal(t, StatusConfirmed, ev.Status)
	assert.Empty(t, b.PendingEvents())
}

func TestOwnerCancelRecordsEventRequesterCancelDoesNot(t *testing.T) {
	owner := newPending(t)
	require.NoError(t, owner.CancelByOwner(today))
	require.Len(t, owner.PendingEvents(), 1)
	assert.Equal(t, StatusCanceled, owner.PendingEvents()[0].(BookingStatusChanged).Status)

	renter := newPending(t)
	require.NoError(t, renter.CancelByRequester(today))
	assert.Equal(t, StatusCanceled, renter.Status)
	assert.Empty(t, renter.PendingEvents())
}

func TestStateMachine(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Confirm(today))
	require.NoError(t, b.CancelByRequester(today))

	assert.ErrorIs(t, b.Confirm(today), ErrInvalidTransition)
	assert.ErrorIs(t, b.CancelByOwner(today), ErrInvalidTransition)
	assert.ErrorIs(t, b.CancelByRequester(today), ErrInvalidTransition)
	assert.Equal(t, StatusCanceled, b.Status)

	confirmed := newPending(t)
	require.NoError(t, confirmed.Confirm(today))
	assert.ErrorIs(t, confirmed.Confirm(today), ErrInvalidTransition)
}

func TestStatusTable(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCanceled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCanceled))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusPending))
	assert.False(t, StatusCanceled.CanTransitionTo(StatusPending))
	assert.False(t, StatusCanceled.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.BlocksCalendar())
	assert.False(t, StatusPending.BlocksCalendar())

	_, err := ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
}

func TestCloneDropsEvents(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Confirm(today))

	c := b.Clone()
	assert.Equal(t, b.ID, c.ID)
	assert.Equal(t, b.Status, c.Status)
	assert.Empty(t, c.PendingEvents())
}
