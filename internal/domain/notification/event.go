package notification

import (
	"time"

	"staybook/internal/domain/booking"
)

const EventBookingCompleted = "booking.completed"

// BookingCompleted is the structured fact sent to downstream sinks.
type BookingCompleted struct {
	Event              string    `json:"event"`
	BookingID          int64     `json:"booking_id"`
	TenantID           int64     `json:"tenant_id"`
	ResourceID         *int64    `json:"resource_id,omitempty"`
	Kind               string    `json:"kind"`
	CorrelationID      string    `json:"payment_correlation_id"`
	CheckIn            string    `json:"check_in"`
	CheckOut           string    `json:"check_out"`
	Adults             int       `json:"adults"`
	Children           int       `json:"children"`
	GrossMinor         int64     `json:"gross_minor"`
	CommissionMinor    int64     `json:"commission_minor"`
	OwnerMinor         int64     `json:"owner_minor"`
	Currency           string    `json:"currency"`
	CommissionDeferred bool      `json:"commission_deferred"`
	Locale             string    `json:"locale"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func NewBookingCompleted(b booking.Booking, at time.Time) BookingCompleted {
	return BookingCompleted{
		Event:              EventBookingCompleted,
		BookingID:          b.ID,
		TenantID:           b.TenantID,
		ResourceID:         b.ResourceID,
		Kind:               string(b.Kind),
		CorrelationID:      b.CorrelationID(),
		CheckIn:            booking.FormatDate(b.CheckIn),
		CheckOut:           booking.FormatDate(b.CheckOut),
		Adults:             b.Adults,
		Children:           b.Children,
		GrossMinor:         b.GrossMinor,
		CommissionMinor:    b.CommissionMinor,
		OwnerMinor:         b.OwnerMinor,
		Currency:           b.Currency,
		CommissionDeferred: b.CommissionDeferred,
		Locale:             NormalizeLocale(b.Locale),
		OccurredAt:         at.UTC(),
	}
}
