package booking

import (
	"fmt"

	"staybook/internal/domain/catalog"
	"staybook/internal/domain/money"
)

// Quote is the priced form of a stay before payment.
type Quote struct {
	Kind              Kind
	Window            Window
	LodgingMinor      int64
	AddonsMinor       int64
	OccupancyTaxMinor int64
	Split             money.Split
	Currency          string
}

// DayUseWindow is the one-day window for a day-use visit on day.
func DayUseWindow(day string) (Window, error) {
	in, err := ParseDate(day)
	if err != nil {
		return Window{}, err
	}
	return Window{CheckIn: in, CheckOut: in.AddDate(0, 0, 1)}, nil
}

// Price computes gross, tax and the commission split for a stay. Day-use
// visits are priced at the tenant day pass when set, else one unit of the
// resource price, and carry no occupancy tax.
func Price(tenant *catalog.Tenant, res *catalog.Resource, kind Kind, w Window, addonsMinor int64) (Quote, error) {
	if !kind.Valid() {
		return Quote{}, fmt.Errorf("%w: unknown booking kind %q", ErrValidation, kind)
	}
	if err := w.Validate(); err != nil {
		return Quote{}, err
	}
	if addonsMinor < 0 {
		return Quote{}, fmt.Errorf("%w: negative add-on total", ErrValidation)
	}
	if res.TenantID != tenant.ID {
		return Quote{}, fmt.Errorf("%w: resource %d does not belong to tenant %d", ErrResourceUnavailable, res.ID, tenant.ID)
	}

	q := Quote{Kind: kind, Window: w, AddonsMinor: addonsMinor, Currency: tenant.Currency}
	if kind.DayUse() {
		if !res.DayUseAllowed {
			return Quote{}, fmt.Errorf("%w: resource %d does not offer day use", ErrValidation, res.ID)
		}
		q.LodgingMinor = res.PriceMinor
		if tenant.DayPassPriceMinor > 0 {
			q.LodgingMinor = tenant.DayPassPriceMinor
		}
	} else {
		q.LodgingMinor = res.PriceMinor * int64(w.Nights())
		tax, err := tenant.OccupancyTaxFor(q.LodgingMinor)
		if err != nil {
			return Quote{}, err
		}
		q.OccupancyTaxMinor = tax
	}

	rate, err := tenant.CommissionRateFor(kind.DayUse())
	if err != nil {
		return Quote{}, err
	}
	split, err := money.SplitMinor(q.LodgingMinor+q.AddonsMinor+q.OccupancyTaxMinor, rate, tenant.FixedFeeMinor)
	if err != nil {
		return Quote{}, err
	}
	q.Split = split
	return q, nil
}
