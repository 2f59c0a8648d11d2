package dto

import (
	"time"

	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

type BookingSummary struct {
	ID           string    `json:"id"`
	ListingType  string    `json:"listing_type"`
	ListingID    string    `json:"listing_id"`
	ListingTitle string    `json:"listing_title,omitempty"`
	Requester    string    `json:"requester"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	TotalPrice   string    `json:"total_price"`
	Currency     string    `json:"currency"`
	PriceUnit    string    `json:"price_unit"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

func MapBookingSummary(booking *domainbooking.Booking, listing *domainlistings.Listing) BookingSummary {
	summary := BookingSummary{
		ID:          string(booking.ID),
		ListingType: string(booking.Listing.Type),
		ListingID:   string(booking.Listing.ID),
		Requester:   booking.Requester,
		StartDate:   booking.Range.Start.Format(daterange.Layout),
		EndDate:     booking.Range.End.Format(daterange.Layout),
		TotalPrice:  booking.TotalPrice.Decimal(),
		Currency:    booking.TotalPrice.Currency,
		PriceUnit:   booking.Listing.Type.PriceUnit(),
		Status:      booking.Status.String(),
		CreatedAt:   booking.CreatedAt,
	}
	if listing != nil {
		summary.ListingTitle = listing.Title
	}
	return summary
}

type Availability struct {
	ListingType string `json:"listing_type"`
	ListingID   string `json:"listing_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Available   bool   `json:"available"`
}
