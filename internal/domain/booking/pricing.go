package booking

import (
	"grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
	"grabit/internal/domain/shared/money"
)

// QuoteTotal prices a stay as Days() * listing price. Properties use the same
// formula even though their price is a flat period rate.
func QuoteTotal(listing *listings.Listing, dr daterange.DateRange) money.Money {
	return listing.Price.Multiply(int64(dr.Days()))
}
