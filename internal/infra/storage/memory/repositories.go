package memory

import (
	"context"
	"sort"
	"sync"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

// BookingStore holds committed bookings. Used directly it behaves as an
// auto-commit repository; Factory units stage writes on top of it.
type BookingStore struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (s *BookingStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (s *BookingStore) Save(ctx context.Context, booking *domainbooking.Booking) error {
	return s.apply(map[domainbooking.BookingID]*domainbooking.Booking{booking.ID: booking})
}

func (s *BookingStore) ListByRequester(ctx context.Context, requester string) ([]*domainbooking.Booking, error) {
	return s.filter(func(b *domainbooking.Booking) bool { return b.Requester == requester }), nil
}

func (s *BookingStore) ListByListing(ctx context.Context, ref domainlistings.Ref) ([]*domainbooking.Booking, error) {
	return s.filter(func(b *domainbooking.Booking) bool { return b.Listing == ref }), nil
}

func (s *BookingStore) ConfirmedOverlapping(ctx context.Context, ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	return s.filter(confirmedOverlap(ref, dr, exclude)), nil
}

func (s *BookingStore) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range s.items {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sortBookings(out)
	return out
}

// apply writes staged bookings atomically. Each staged booking carries the
// version it was read at; a mismatch means someone else committed first.
func (s *BookingStore) apply(staged map[domainbooking.BookingID]*domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range staged {
		current, exists := s.items[id]
		switch {
		case exists && current.Version != b.Version:
			return uow.ErrConcurrentUpdate
		case !exists && b.Version != 0:
			return uow.ErrConcurrentUpdate
		}
	}
	for id, b := range staged {
		b.Version++
		s.items[id] = b.Clone()
	}
	return nil
}

func confirmedOverlap(ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) func(*domainbooking.Booking) bool {
	return func(b *domainbooking.Booking) bool {
		return b.Listing == ref &&
			b.ID != exclude &&
			b.Status == domainbooking.StatusConfirmed &&
			b.Range.Overlaps(dr)
	}
}

func sortBookings(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var _ domainbooking.Repository = (*BookingStore)(nil)
