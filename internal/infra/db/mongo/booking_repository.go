package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/money"
)

const bookingsCollection = "bookings"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

// Save upserts on (_id, version). A stale version misses the filter and the
// upsert then collides on _id, which is reported as a concurrent update.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return errors.New("mongo: nil booking")
	}
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requester string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"requester": requester})
}

func (r *BookingRepository) ListByListing(ctx context.Context, ref domainlistings.Ref) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"listing_type": string(ref.Type), "listing_id": string(ref.ID)})
}

func (r *BookingRepository) ConfirmedOverlapping(ctx context.Context, ref domainlistings.Ref, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_type": string(ref.Type),
		"listing_id":   string(ref.ID),
		"status":       string(domainbooking.StatusConfirmed),
		"range.start":  bson.M{"$lte": dr.End.UnixMilli()},
		"range.end":    bson.M{"$gte": dr.Start.UnixMilli()},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type bookingDocument struct {
	ID          string        `bson:"_id"`
	ListingType string        `bson:"listing_type"`
	ListingID   string        `bson:"listing_id"`
	Requester   string        `bson:"requester"`
	Range       rangeDocument `bson:"range"`
	TotalAmount int64         `bson:"total_amount"`
	Currency    string        `bson:"currency"`
	Status      string        `bson:"status"`
	CreatedAt   int64         `bson:"created_at"`
	UpdatedAt   int64         `bson:"updated_at"`
	Version     int64         `bson:"version"`
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:          string(b.ID),
		ListingType: string(b.Listing.Type),
		ListingID:   string(b.Listing.ID),
		Requester:   b.Requester,
		Range:       rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		TotalAmount: b.TotalPrice.Amount,
		Currency:    b.TotalPrice.Currency,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt.UnixMilli(),
		UpdatedAt:   b.UpdatedAt.UnixMilli(),
		Version:     b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	ref, err := domainlistings.NewRef(d.ListingType, d.ListingID)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	status, err := domainbooking.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		Listing:    ref,
		Requester:  d.Requester,
		Range:      daterange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		TotalPrice: money.Money{Amount: d.TotalAmount, Currency: d.Currency},
		Status:     status,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}, nil
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
