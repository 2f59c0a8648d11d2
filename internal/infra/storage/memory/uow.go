package memory

import (
	"context"
	"errors"
	"sync"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already closed")
	ErrReadOnly             = errors.New("memory: unit of work is read-only")
)

// Factory opens units over a shared BookingStore. Listing locks are process-wide.
type Factory struct {
	Store *BookingStore
	locks *keyedLocks
	once  sync.Once
}

func NewFactory(store *BookingStore) *Factory {
	return &Factory{Store: store, locks: newKeyedLocks()}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	f.once.Do(func() {
		if f.locks == nil {
			f.locks = newKeyedLocks()
		}
	})
	u := &Unit{
		store:    f.Store,
		locks:    f.locks,
		readOnly: opts.ReadOnly,
		staged:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		held:     make(map[string]struct{}),
	}
	u.repo = &unitRepository{unit: u}
	return u, nil
}

// Unit stages booking writes until Commit and holds listing locks until it closes.
type Unit struct {
	mu       sync.Mutex
	store    *BookingStore
	locks    *keyedLocks
	readOnly bool
	closed   bool
	staged   map[domainbooking.BookingID]*domainbooking.Booking
	held     map[string]struct{}
	repo     *unitRepository
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.repo
}

func (u *Unit) LockListing(ctx context.Context, ref domainlistings.Ref) error {
	key := ref.String()
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	if _, ok := u.held[key]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	if err := u.locks.acquire(ctx, key); err != nil {
		return err
	}
	u.mu.Lock()
	u.held[key] = struct{}{}
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	defer u.closeLocked()
	if len(u.staged) == 0 {
		return nil
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return u.store.apply(u.staged)
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closeLocked()
	return nil
}

func (u *Unit) closeLocked() {
	u.closed = true
	u.staged = nil
	for key := range u.held {
		u.locks.release(key)
	}
	u.held = nil
}

type unitRepository struct {
	unit *Unit
}

func (r *unitRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.unit.mu.Lock()
	staged, ok := r.unit.staged[id]
	r.unit.mu.Unlock()
	if ok {
		return staged.Clone(), nil
	}
	return r.unit.store.ByID(ctx, id)
}

func (r *unitRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	if booking == nil {
		return errors.New("memory: nil booking")
	}
	r.unit.mu.Lock()
	defer r.unit.mu.Unlock()
	if r.unit.closed {
		return ErrUnitClosed
	}
	if r.unit.readOnly {
		return ErrReadOnly
	}
	r.unit.staged[booking.ID] = booking.Clone()
	return nil
}

func (r *unitRepository) ListByRequester(ctx context.Context, requester string) ([]*domainbooking.Booking, error) {
	return r.merge(func(b *domainbooking.Booking) bool { return b.Requester == requester }), nil
}

func (r *unitRepository) ListByListing(ctx context.Context, ref domainlistings.Ref) ([]*domainbooking.Booking, error) {
	return r.merge(func(b *domainbooking.Booking) bool { return b.Listing == ref }), nil
}

func (r *unitRepository) ConfirmedOverlapping(ctx context.Context, ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	return r.merge(confirmedOverlap(ref, dr, exclude)), nil
}

// merge overlays staged writes on committed state.
func (r *unitRepository) merge(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.unit.mu.Lock()
	staged := make(map[domainbooking.BookingID]*domainbooking.Booking, len(r.unit.staged))
	for id, b := range r.unit.staged {
		staged[id] = b
	}
	r.unit.mu.Unlock()

	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.unit.store.filter(func(*domainbooking.Booking) bool { return true }) {
		if _, overridden := staged[b.ID]; overridden {
			continue
		}
		if keep(b) {
			out = append(out, b)
		}
	}
	for _, b := range staged {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sortBookings(out)
	return out
}

var (
	_ uow.UoWFactory           = (*Factory)(nil)
	_ uow.UnitOfWork           = (*Unit)(nil)
	_ domainbooking.Repository = (*unitRepository)(nil)
)
