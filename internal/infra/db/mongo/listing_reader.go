package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grabit/internal/app/policies"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/money"
)

var listingCollections = map[domainlistings.Type]string{
	domainlistings.TypeVehicle:  "vehicles",
	domainlistings.TypeProperty: "properties",
}

type ListingReader struct {
	db *mongo.Database
}

func NewListingReader(db *mongo.Database) *ListingReader {
	return &ListingReader{db: db}
}

func (r *ListingReader) Listing(ctx context.Context, ref domainlistings.Ref) (*domainlistings.Listing, error) {
	name, ok := listingCollections[ref.Type]
	if !ok {
		return nil, domainlistings.ErrInvalidListingType
	}
	var doc listingDocument
	if err := r.db.Collection(name).FindOne(ctx, bson.M{"_id": string(ref.ID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toListing(ref.Type), nil
}

func (r *ListingReader) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	for _, t := range []domainlistings.Type{domainlistings.TypeVehicle, domainlistings.TypeProperty} {
		cur, err := r.db.Collection(listingCollections[t]).Find(ctx, bson.M{"owner_id": string(owner)},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return nil, err
		}
		var docs []listingDocument
		if err := cur.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, doc := range docs {
			out = append(out, doc.toListing(t))
		}
	}
	return out, nil
}

type listingDocument struct {
	ID          string `bson:"_id"`
	OwnerID     string `bson:"owner_id"`
	Title       string `bson:"title"`
	PriceMinor  int64  `bson:"price_minor"`
	Currency    string `bson:"currency"`
	IsAvailable bool   `bson:"is_available"`
}

func (d listingDocument) toListing(t domainlistings.Type) *domainlistings.Listing {
	return &domainlistings.Listing{
		Ref:         domainlistings.Ref{Type: t, ID: domainlistings.ListingID(d.ID)},
		Owner:       domainlistings.OwnerID(d.OwnerID),
		Title:       d.Title,
		Price:       money.Money{Amount: d.PriceMinor, Currency: d.Currency},
		IsAvailable: d.IsAvailable,
	}
}

var _ policies.ListingProvider = (*ListingReader)(nil)
