package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grabit/internal/app/policies"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/money"
)

type listingRow struct {
	ID          string `db:"id"`
	OwnerID     string `db:"owner_id"`
	Title       string `db:"title"`
	PriceMinor  int64  `db:"price_minor"`
	Currency    string `db:"currency"`
	IsAvailable bool   `db:"is_available"`
}

func (r listingRow) toDomain(t domainlistings.Type) *domainlistings.Listing {
	return &domainlistings.Listing{
		Ref:         domainlistings.Ref{Type: t, ID: domainlistings.ListingID(r.ID)},
		Owner:       domainlistings.OwnerID(r.OwnerID),
		Title:       r.Title,
		Price:       money.Money{Amount: r.PriceMinor, Currency: r.Currency},
		IsAvailable: r.IsAvailable,
	}
}

// ListingReader reads the vehicles and properties tables owned by the
// listing service. Vehicles carry a daily price, properties a flat one.
type ListingReader struct {
	db *sqlx.DB
}

func NewListingReader(db *sqlx.DB) *ListingReader {
	return &ListingReader{db: db}
}

var listingTables = map[domainlistings.Type]string{
	domainlistings.TypeVehicle:  "vehicles",
	domainlistings.TypeProperty: "properties",
}

func (r *ListingReader) Listing(ctx context.Context, ref domainlistings.Ref) (*domainlistings.Listing, error) {
	table, ok := listingTables[ref.Type]
	if !ok {
		return nil, domainlistings.ErrInvalidListingType
	}
	query := `SELECT id, owner_id, title, price_minor, currency, is_available FROM ` + table + ` WHERE id = $1`
	var row listingRow
	if err := r.db.GetContext(ctx, &row, query, string(ref.ID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return row.toDomain(ref.Type), nil
}

func (r *ListingReader) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	for _, t := range []domainlistings.Type{domainlistings.TypeVehicle, domainlistings.TypeProperty} {
		query := `SELECT id, owner_id, title, price_minor, currency, is_available FROM ` + listingTables[t] + ` WHERE owner_id = $1 ORDER BY id`
		var rows []listingRow
		if err := r.db.SelectContext(ctx, &rows, query, string(owner)); err != nil {
			return nil, fmt.Errorf("select %s: %w", listingTables[t], err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain(t))
		}
	}
	return out, nil
}

var _ policies.ListingProvider = (*ListingReader)(nil)
