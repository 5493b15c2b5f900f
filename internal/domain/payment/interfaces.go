package payment

import (
	"context"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
)

type bookingLedger interface {
	CreateIdempotent(ctx context.Context, correlationID string, kind booking.Kind, b *booking.Booking) (*booking.Booking, bool, error)
	CreatePending(ctx context.Context, correlationID string, b *booking.Booking) (*booking.Booking, error)
	MarkFailed(ctx context.Context, correlationID string) (int64, error)
}

type catalogReader interface {
	GetTenant(ctx context.Context, id int64) (*catalog.Tenant, error)
	GetResource(ctx context.Context, id int64) (*catalog.Resource, error)
}

type availabilityChecker interface {
	IsAvailable(ctx context.Context, resourceID int64, w booking.Window, opts booking.Options) (bool, error)
}

// Notifier runs the post-booking side effects. Dispatch must return without
// waiting for delivery.
type Notifier interface {
	Dispatch(b booking.Booking)
}

// DeferredCommission is the commission owed by a sub-account for a payment
// whose method could not carry an inline fee.
type DeferredCommission struct {
	BookingID     int64
	TenantID      int64
	CorrelationID string
	SubAccountID  string
	AmountMinor   int64
	Currency      string
}

// CommissionScheduler durably queues a deferred collection. It must be
// idempotent per correlation id.
type CommissionScheduler interface {
	Schedule(ctx context.Context, dc DeferredCommission) error
}
