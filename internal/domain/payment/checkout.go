package payment

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/domain/booking"
)

const defaultPaymentMethod = "card"

// Checkout prices a stay and opens a payment intent for it. No booking is
// confirmed here; that happens when the succeeded event arrives.
type Checkout struct {
	gateway      Gateway
	catalog      catalogReader
	availability availabilityChecker
	ledger       bookingLedger
	deferred     map[string]bool
	loggerf      func(format string, args ...interface{})
}

func NewCheckout(gateway Gateway, catalog catalogReader, availability availabilityChecker, ledger bookingLedger, deferredMethods []string, loggerf func(format string, args ...interface{})) *Checkout {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Checkout{
		gateway:      gateway,
		catalog:      catalog,
		availability: availability,
		ledger:       ledger,
		deferred:     methodSet(deferredMethods),
		loggerf:      loggerf,
	}
}

func (c *Checkout) Start(ctx context.Context, tenantID int64, req CheckoutRequest) (*CheckoutResponse, error) {
	kind := booking.Kind(req.Kind)
	if kind == "" {
		kind = booking.KindNightStay
	}

	var (
		w   booking.Window
		err error
	)
	if kind.DayUse() {
		w, err = booking.DayUseWindow(req.CheckIn)
	} else {
		w, err = booking.ParseWindow(req.CheckIn, req.CheckOut)
	}
	if err != nil {
		return nil, err
	}

	tenant, err := c.catalog.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	res, err := c.catalog.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.IsActive || res.TenantID != tenant.ID {
		return nil, fmt.Errorf("%w: resource %d", booking.ErrResourceUnavailable, res.ID)
	}

	free, err := c.availability.IsAvailable(ctx, res.ID, w, booking.Options{})
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, booking.ErrConflict
	}

	q, err := booking.Price(tenant, res, kind, w, req.AddonsMinor)
	if err != nil {
		return nil, err
	}

	if tenant.SubAccountID == "" {
		return nil, fmt.Errorf("%w: tenant %d has no sub-account", ErrSubAccountDisabled, tenant.ID)
	}
	acct, err := c.gateway.RetrieveAccount(ctx, tenant.SubAccountID)
	if err != nil {
		return nil, err
	}
	if !acct.ChargesEnabled {
		return nil, fmt.Errorf("%w: %s", ErrSubAccountDisabled, acct.ID)
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = defaultPaymentMethod
	}
	deferred := c.deferred[method]

	adults := req.Adults
	if adults == 0 {
		adults = 1
	}
	guest := Guest{
		FirstName: strings.TrimSpace(req.GuestFirstName),
		LastName:  strings.TrimSpace(req.GuestLastName),
		Email:     strings.TrimSpace(req.GuestEmail),
		Phone:     strings.TrimSpace(req.GuestPhone),
		Locale:    booking.Language(req.Locale),
	}
	party := Party{Adults: adults, Children: req.Children}
	payload := payloadFor(kind, tenant.ID, res.ID, guest, party, q)

	params := IntentParams{
		AmountMinor:        q.Split.GrossMinor,
		Currency:           q.Currency,
		PaymentMethodTypes: []string{method},
		Metadata:           EncodeMetadata(payload),
	}
	if deferred {
		params.OnAccount = tenant.SubAccountID
	} else {
		params.ApplicationFeeMinor = q.Split.CommissionMinor
		params.TransferDestination = tenant.SubAccountID
	}

	intent, err := c.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, err
	}
	c.loggerf("level=info msg=payment intent created intent_id=%s tenant_id=%d resource_id=%d gross=%d commission=%d deferred=%t",
		intent.ID, tenant.ID, res.ID, q.Split.GrossMinor, q.Split.CommissionMinor, deferred)

	if kind == booking.KindClassic {
		stub := payload.draft()
		stub.ApplySplit(q.Split)
		stub.Currency = q.Currency
		stub.CommissionDeferred = deferred
		if _, err := c.ledger.CreatePending(ctx, intent.ID, stub); err != nil {
			c.loggerf("level=error msg=pending stub not stored intent_id=%s err=%v", intent.ID, err)
		}
	}

	return &CheckoutResponse{
		PaymentIntentID:    intent.ID,
		ClientSecret:       intent.ClientSecret,
		Currency:           q.Currency,
		GrossMinor:         q.Split.GrossMinor,
		CommissionMinor:    q.Split.CommissionMinor,
		OwnerMinor:         q.Split.OwnerMinor,
		OccupancyTaxMinor:  q.OccupancyTaxMinor,
		AddonsMinor:        q.AddonsMinor,
		CommissionDeferred: deferred,
	}, nil
}

func payloadFor(kind booking.Kind, tenantID, resourceID int64, g Guest, party Party, q booking.Quote) Payload {
	switch kind {
	case booking.KindDayUse:
		return DayUse{TenantID: tenantID, ResourceID: resourceID, Guest: g, Party: party, Window: q.Window, AddonsMinor: q.AddonsMinor}
	case booking.KindClassic:
		rid := resourceID
		return Classic{TenantID: tenantID, ResourceID: &rid, Guest: g, Party: party, Window: q.Window,
			AddonsMinor: q.AddonsMinor, OccupancyTaxMinor: q.OccupancyTaxMinor}
	default:
		return NightStay{TenantID: tenantID, ResourceID: resourceID, Guest: g, Party: party, Window: q.Window,
			AddonsMinor: q.AddonsMinor, OccupancyTaxMinor: q.OccupancyTaxMinor}
	}
}
