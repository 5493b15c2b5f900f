package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DirectPrefix marks correlation ids minted for reservations that never went
// through the payment processor.
const DirectPrefix = "manual_"

// Reservations is the direct, non payment-gated creation path.
type Reservations struct {
	ledger  *Ledger
	catalog CatalogReader
	loggerf func(format string, args ...interface{})
}

func NewReservations(ledger *Ledger, catalog CatalogReader, loggerf func(format string, args ...interface{})) *Reservations {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Reservations{ledger: ledger, catalog: catalog, loggerf: loggerf}
}

func (s *Reservations) Reserve(ctx context.Context, resourceID int64, req ReservationRequest) (*Booking, error) {
	kind := req.Kind
	if kind == "" {
		kind = KindNightStay
	}

	var (
		w   Window
		err error
	)
	if kind.DayUse() {
		w, err = DayUseWindow(req.CheckIn)
	} else {
		w, err = ParseWindow(req.CheckIn, req.CheckOut)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.catalog.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !res.IsActive {
		return nil, fmt.Errorf("%w: resource %d is inactive", ErrResourceUnavailable, resourceID)
	}
	tenant, err := s.catalog.GetTenant(ctx, res.TenantID)
	if err != nil {
		return nil, err
	}

	q, err := Price(tenant, res, kind, w, req.AddonsMinor)
	if err != nil {
		return nil, err
	}

	adults := req.Adults
	if adults == 0 {
		adults = 1
	}
	cid := DirectPrefix + uuid.NewString()
	b := &Booking{
		TenantID:             tenant.ID,
		ResourceID:           &res.ID,
		Kind:                 kind,
		GuestFirstName:       strings.TrimSpace(req.GuestFirstName),
		GuestLastName:        strings.TrimSpace(req.GuestLastName),
		GuestEmail:           strings.TrimSpace(req.GuestEmail),
		GuestPhone:           strings.TrimSpace(req.GuestPhone),
		Locale:               Language(req.Locale),
		CheckIn:              w.CheckIn,
		CheckOut:             w.CheckOut,
		Adults:               adults,
		Children:             req.Children,
		Currency:             q.Currency,
		PaymentCorrelationID: &cid,
		PaymentStatus:        PaymentSucceeded,
	}
	b.ApplySplit(q.Split)
	if q.AddonsMinor > 0 {
		b.AddonsMinor = &q.AddonsMinor
	}
	if q.OccupancyTaxMinor > 0 {
		b.OccupancyTaxMinor = &q.OccupancyTaxMinor
	}

	out, err := s.ledger.ReserveIfFree(ctx, b)
	if err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=direct_reservation booking_id=%d resource_id=%d window=%s", out.ID, resourceID, w)
	return out, nil
}
