package commission

import "errors"

var (
	ErrDeferredCollection = errors.New("deferred commission collection failed")
	// ErrPaymentNotFinal means the originating payment has not settled as
	// succeeded yet. The collection is retried later.
	ErrPaymentNotFinal = errors.New("originating payment is not finalized")
	ErrPaymentCanceled = errors.New("originating payment was canceled")
	ErrNotFound        = errors.New("commission collection not found")
	ErrInvalidState    = errors.New("commission collection is not retryable")
)
