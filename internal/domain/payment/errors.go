package payment

import (
	"errors"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/money"
)

var (
	// ErrAuthentication means the event signature did not verify. Nothing
	// was processed.
	ErrAuthentication = errors.New("payment event authentication failed")
	// ErrClassification means the event was genuine but its metadata, tenant
	// or resource cannot produce a booking.
	ErrClassification = errors.New("payment event classification failed")
	// ErrTransient wraps infrastructure failures; the whole event is safe to
	// redeliver.
	ErrTransient = errors.New("transient payment processing failure")

	ErrSubAccountDisabled = errors.New("tenant sub-account cannot accept charges")
	ErrGatewayUnavailable = errors.New("payment gateway is not configured")
)

// IsPermanent reports whether redelivering the event cannot change the
// outcome. Permanent failures are acknowledged to the processor.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrClassification) ||
		errors.Is(err, booking.ErrConflict) ||
		errors.Is(err, money.ErrInvalidSplit)
}
