package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/money"
)

const bookingColumns = `id, listing_type, listing_id, requester, start_date, end_date, total_amount, currency, status, created_at, updated_at, version`

type bookingRow struct {
	ID          string    `db:"id"`
	ListingType string    `db:"listing_type"`
	ListingID   string    `db:"listing_id"`
	Requester   string    `db:"requester"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	TotalAmount int64     `db:"total_amount"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Version     int64     `db:"version"`
}

func (r bookingRow) toDomain() (*domainbooking.Booking, error) {
	ref, err := domainlistings.NewRef(r.ListingType, r.ListingID)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", r.ID, err)
	}
	status, err := domainbooking.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", r.ID, err)
	}
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(r.ID),
		Listing:    ref,
		Requester:  r.Requester,
		Range:      daterange.DateRange{Start: daterange.Day(r.StartDate), End: daterange.Day(r.EndDate)},
		TotalPrice: money.Money{Amount: r.TotalAmount, Currency: r.Currency},
		Status:     status,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		Version:    r.Version,
	}, nil
}

// BookingRepository runs against a *sqlx.DB or a *sqlx.Tx.
type BookingRepository struct {
	db sqlx.ExtContext
}

func NewBookingRepository(db sqlx.ExtContext) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var row bookingRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return row.toDomain()
}

// Save inserts a booking with version 0 or updates one whose stored version
// still matches. The booking's Version is advanced on success.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return errors.New("postgres: nil booking")
	}
	if b.Version == 0 {
		return r.insert(ctx, b)
	}
	query := `UPDATE bookings
		SET status = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4`
	res, err := r.db.ExecContext(ctx, query, string(b.Status), b.UpdatedAt, string(b.ID), b.Version)
	if err != nil {
		if isRetryable(err) {
			return uow.ErrConcurrentUpdate
		}
		return fmt.Errorf("update booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if affected == 0 {
		return uow.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r *BookingRepository) insert(ctx context.Context, b *domainbooking.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)`
	_, err := r.db.ExecContext(ctx, query,
		string(b.ID),
		string(b.Listing.Type),
		string(b.Listing.ID),
		b.Requester,
		b.Range.Start,
		b.Range.End,
		b.TotalPrice.Amount,
		b.TotalPrice.Currency,
		string(b.Status),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isRetryable(err) {
			return uow.ErrConcurrentUpdate
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	b.Version = 1
	return nil
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requester string) ([]*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester = $1 ORDER BY created_at, id`
	return r.list(ctx, query, requester)
}

func (r *BookingRepository) ListByListing(ctx context.Context, ref domainlistings.Ref) ([]*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE listing_type = $1 AND listing_id = $2 ORDER BY created_at, id`
	return r.list(ctx, query, string(ref.Type), string(ref.ID))
}

// ConfirmedOverlapping uses the inclusive overlap rule: start <= other.end AND end >= other.start.
func (r *BookingRepository) ConfirmedOverlapping(ctx context.Context, ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE listing_type = $1 AND listing_id = $2 AND status = 'confirmed'
		AND start_date <= $3 AND end_date >= $4 AND id <> $5
		ORDER BY created_at, id`
	return r.list(ctx, query, string(ref.Type), string(ref.ID), dr.End, dr.Start, string(exclude))
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domainbooking.Booking, error) {
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	out := make([]*domainbooking.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
