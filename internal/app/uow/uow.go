package uow

import (
	"context"
	"errors"

	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
)

// ErrConcurrentUpdate signals that the store rejected a write because another
// transaction changed the same data first. The whole command may be retried.
var ErrConcurrentUpdate = errors.New("uow: concurrent update")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	// LockListing serializes writers of one listing until Commit or Rollback.
	LockListing(ctx context.Context, ref domainlistings.Ref) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
