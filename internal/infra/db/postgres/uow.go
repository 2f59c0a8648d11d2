package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
)

var ErrTxClosed = errors.New("postgres: transaction already closed")

type Factory struct {
	DB *sqlx.DB
}

func NewFactory(db *sqlx.DB) *Factory {
	return &Factory{DB: db}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, errors.New("postgres: factory has no database")
	}
	tx, err := f.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Unit{tx: tx, repo: NewBookingRepository(tx)}, nil
}

// Unit wraps one database transaction. Listing locks are transaction-scoped
// advisory locks and are released by COMMIT or ROLLBACK.
type Unit struct {
	tx     *sqlx.Tx
	repo   *BookingRepository
	closed bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.repo
}

func (u *Unit) LockListing(ctx context.Context, ref domainlistings.Ref) error {
	if u.closed {
		return ErrTxClosed
	}
	if _, err := u.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ref.String()); err != nil {
		return fmt.Errorf("lock listing %s: %w", ref, err)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrTxClosed
	}
	u.closed = true
	if err := u.tx.Commit(); err != nil {
		if isRetryable(err) {
			return uow.ErrConcurrentUpdate
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

var (
	_ uow.UoWFactory = (*Factory)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
