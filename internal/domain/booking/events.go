package booking

import "time"

// BookingStatusChanged is pushed to the notification sink on owner-driven transitions.
type BookingStatusChanged struct {
	BookingID BookingID `json:"booking_id"`
	Status    Status    `json:"status"`
	At        time.Time `json:"occurred_at"`
}

func (e BookingStatusChanged) EventName() string     { return "booking.status_changed" }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

func StatusChanged(b *Booking, at time.Time) BookingStatusChanged {
	return BookingStatusChanged{BookingID: b.ID, Status: b.Status, At: at}
}
