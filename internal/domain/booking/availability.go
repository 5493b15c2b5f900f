package booking

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/domain/catalog"
)

// Options tunes an availability probe. The zero value considers only
// succeeded bookings.
type Options struct {
	ExcludeBookingID int64
	IncludePending   bool
}

// Availability answers read-only inventory questions. Its answers are advisory;
// the Ledger re-checks at insert time.
type Availability struct {
	ledger  *Ledger
	catalog CatalogReader
	now     func() time.Time
}

func NewAvailability(ledger *Ledger, catalog CatalogReader) *Availability {
	return &Availability{ledger: ledger, catalog: catalog, now: time.Now}
}

func (a *Availability) IsAvailable(ctx context.Context, resourceID int64, w Window, opts Options) (bool, error) {
	if err := w.Validate(); err != nil {
		return false, err
	}
	busy, err := a.ledger.HasOverlap(ctx, OverlapQuery{
		ResourceID:       resourceID,
		Window:           w,
		ExcludeBookingID: opts.ExcludeBookingID,
		IncludePending:   opts.IncludePending,
	})
	if err != nil {
		return false, err
	}
	return !busy, nil
}

// ListAvailable returns the tenant's active resources matching filter that
// hold no succeeded booking overlapping w.
func (a *Availability) ListAvailable(ctx context.Context, tenantID int64, w Window, filter catalog.CapabilityFilter) ([]catalog.Resource, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	resources, err := a.catalog.ListActiveResources(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	busy, err := a.ledger.BusyResourceIDs(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Resource, 0, len(resources))
	for _, r := range resources {
		if !busy[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// IsCurrentlyFree is the same-day view. A stay checking in today occupies the
// resource all day. A stay checking out today occupies it until the tenant's
// checkout time, or until local midnight when none is configured.
func (a *Availability) IsCurrentlyFree(ctx context.Context, resourceID int64, asOf time.Time) (bool, error) {
	res, err := a.catalog.GetResource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	tenant, err := a.catalog.GetTenant(ctx, res.TenantID)
	if err != nil {
		return false, err
	}
	if asOf.IsZero() {
		asOf = a.now()
	}

	local := asOf.In(tenant.Location())
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := a.ledger.ActiveAround(ctx, resourceID, today)
	if err != nil {
		return false, fmt.Errorf("occupancy for resource %d: %w", resourceID, err)
	}

	h, m, hasCheckout := tenant.CheckoutClock()
	for _, b := range rows {
		in, out := Date(b.CheckIn), Date(b.CheckOut)
		switch {
		case !in.After(today) && out.After(today):
			return false, nil
		case out.Equal(today):
			if !hasCheckout {
				return false, nil
			}
			cutoff := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, local.Location())
			if local.Before(cutoff) {
				return false, nil
			}
		}
	}
	return true, nil
}
