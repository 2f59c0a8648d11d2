package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"grabit/internal/app/policies"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/money"
)

// ListingCatalog is an in-process stand-in for the listing service.
type ListingCatalog struct {
	mu    sync.RWMutex
	items map[domainlistings.Ref]*domainlistings.Listing
}

func NewListingCatalog() *ListingCatalog {
	return &ListingCatalog{items: make(map[domainlistings.Ref]*domainlistings.Listing)}
}

func (c *ListingCatalog) Put(listing *domainlistings.Listing) error {
	if listing == nil {
		return fmt.Errorf("memory: nil listing")
	}
	if err := listing.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *listing
	c.items[listing.Ref] = &copied
	return nil
}

func (c *ListingCatalog) Listing(ctx context.Context, ref domainlistings.Ref) (*domainlistings.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.items[ref]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	copied := *l
	return &copied, nil
}

func (c *ListingCatalog) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0)
	for _, l := range c.items {
		if l.Owner == owner {
			copied := *l
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.String() < out[j].Ref.String() })
	return out, nil
}

type listingFixture struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	PriceMinor  int64  `json:"price_minor"`
	Currency    string `json:"currency"`
	IsAvailable *bool  `json:"is_available"`
}

// LoadListingFixtures reads a JSON array of listings into the catalog.
func LoadListingFixtures(path string, catalog *ListingCatalog) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read listing fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode listing fixtures: %w", err)
	}
	for i, f := range fixtures {
		ref, err := domainlistings.NewRef(f.Type, f.ID)
		if err != nil {
			return i, fmt.Errorf("fixture %d: %w", i, err)
		}
		currency := f.Currency
		if currency == "" {
			currency = "USD"
		}
		price, err := money.New(f.PriceMinor, currency)
		if err != nil {
			return i, fmt.Errorf("fixture %d: %w", i, err)
		}
		available := true
		if f.IsAvailable != nil {
			available = *f.IsAvailable
		}
		if err := catalog.Put(&domainlistings.Listing{
			Ref:         ref,
			Owner:       domainlistings.OwnerID(f.Owner),
			Title:       f.Title,
			Price:       price,
			IsAvailable: available,
		}); err != nil {
			return i, fmt.Errorf("fixture %d: %w", i, err)
		}
	}
	return len(fixtures), nil
}

var _ policies.ListingProvider = (*ListingCatalog)(nil)
