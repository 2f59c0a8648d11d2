package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grabit/internal/app/uow"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the booking queries rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	bookings := c.DB.Collection(bookingsCollection)
	_, err := bookings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_type", Value: 1}, {Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "requester", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return err
	}
	for _, name := range listingCollections {
		if _, err := c.DB.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		}); err != nil {
			return err
		}
	}
	return nil
}

const codeWriteConflict = 112

// isConflict reports whether the server rejected a write because another
// transaction touched the same document.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

func mapWriteError(err error) error {
	if isConflict(err) {
		return uow.ErrConcurrentUpdate
	}
	return err
}
