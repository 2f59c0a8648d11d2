package policies

import (
	"context"

	domainlistings "grabit/internal/domain/listings"
)

// ListingProvider reads listings owned by the listing service.
type ListingProvider interface {
	// Listing returns domainlistings.ErrListingNotFound for unknown refs.
	Listing(ctx context.Context, ref domainlistings.Ref) (*domainlistings.Listing, error)
	ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error)
}
