package listings

import (
	"errors"
	"fmt"
	"strings"

	"grabit/internal/domain/shared/money"
)

var (
	ErrListingNotFound    = errors.New("listings: listing not found")
	ErrInvalidListingType = errors.New("listings: invalid listing type")
	ErrListingIDRequired  = errors.New("listings: listing id is required")
	ErrOwnerRequired      = errors.New("listings: owner is required")
	ErrNegativePrice      = errors.New("listings: price must be non-negative")
)

type ListingID string

// OwnerID is the opaque identity of the user who lists a vehicle or property.
type OwnerID string

type Type string

const (
	TypeVehicle  Type = "vehicle"
	TypeProperty Type = "property"
)

// ParseType normalizes a listing type coming from the outside.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeVehicle:
		return TypeVehicle, nil
	case TypeProperty:
		return TypeProperty, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidListingType, raw)
	}
}

// PriceUnit names what one unit of Listing.Price pays for.
func (t Type) PriceUnit() string {
	if t == TypeVehicle {
		return "day"
	}
	return "period"
}

// Ref points at exactly one listing: a vehicle or a property.
type Ref struct {
	Type Type
	ID   ListingID
}

func NewRef(listingType, id string) (Ref, error) {
	t, err := ParseType(listingType)
	if err != nil {
		return Ref{}, err
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Ref{}, ErrListingIDRequired
	}
	return Ref{Type: t, ID: ListingID(trimmed)}, nil
}

func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// String is the stable key used for locks, logs and map lookups.
func (r Ref) String() string {
	return string(r.Type) + ":" + string(r.ID)
}

// Listing is the read model the booking core needs from the listing service.
type Listing struct {
	Ref         Ref
	Owner       OwnerID
	Title       string
	Price       money.Money
	IsAvailable bool
}

func (l *Listing) Validate() error {
	if l.Ref.ID == "" {
		return ErrListingIDRequired
	}
	if _, err := ParseType(string(l.Ref.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(string(l.Owner)) == "" {
		return ErrOwnerRequired
	}
	if l.Price.Amount < 0 {
		return ErrNegativePrice
	}
	return nil
}

// OwnedBy reports whether actor owns the listing.
func (l *Listing) OwnedBy(actor string) bool {
	return actor != "" && string(l.Owner) == actor
}
