package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

const listingLocksCollection = "listing_locks"

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		bookings: NewBookingRepository(f.DB),
		readOnly: opts.ReadOnly,
	}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	bookings *BookingRepository
	readOnly bool
	done     bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return sessionBookings{unit: u}
}

// LockListing bumps a per-listing lock document inside the transaction. A
// second transaction touching the same listing hits a write conflict and is
// retried by the caller.
func (u *Unit) LockListing(ctx context.Context, ref domainlistings.Ref) error {
	ctx = u.InjectContext(ctx)
	_, err := u.db.Collection(listingLocksCollection).UpdateByID(ctx, ref.String(),
		bson.M{"$inc": bson.M{"seq": 1}}, options.Update().SetUpsert(true))
	return mapWriteError(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("mongo: unit of work already closed")
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// sessionBookings runs every repository call inside the unit's session.
type sessionBookings struct {
	unit *Unit
}

func (s sessionBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return s.unit.bookings.ByID(s.unit.InjectContext(ctx), id)
}

func (s sessionBookings) Save(ctx context.Context, b *domainbooking.Booking) error {
	if s.unit.readOnly {
		return errors.New("mongo: unit of work is read-only")
	}
	return s.unit.bookings.Save(s.unit.InjectContext(ctx), b)
}

func (s sessionBookings) ListByRequester(ctx context.Context, requester string) ([]*domainbooking.Booking, error) {
	return s.unit.bookings.ListByRequester(s.unit.InjectContext(ctx), requester)
}

func (s sessionBookings) ListByListing(ctx context.Context, ref domainlistings.Ref) ([]*domainbooking.Booking, error) {
	return s.unit.bookings.ListByListing(s.unit.InjectContext(ctx), ref)
}

func (s sessionBookings) ConfirmedOverlapping(ctx context.Context, ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	return s.unit.bookings.ConfirmedOverlapping(s.unit.InjectContext(ctx), ref, dr, exclude)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
