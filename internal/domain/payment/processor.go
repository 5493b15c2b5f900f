package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/money"
)

var tracer = otel.Tracer("staybook/payment")

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "marked_failed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
)

type Result struct {
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	Outcome       Outcome `json:"outcome"`
	BookingID     int64   `json:"booking_id,omitempty"`
}

type ProcessorConfig struct {
	// WriteRetries bounds ledger attempts on transient storage errors.
	WriteRetries int
	RetryBackoff time.Duration
	// DeferredMethods are payment-method types without inline fee support.
	DeferredMethods []string
}

// Processor turns verified payment events into at most one booking per
// correlation id.
type Processor struct {
	gateway   Gateway
	ledger    bookingLedger
	catalog   catalogReader
	notifier  Notifier
	scheduler CommissionScheduler
	loggerf   func(format string, args ...interface{})

	writeRetries int
	retryBackoff time.Duration
	deferred     map[string]bool
}

func NewProcessor(gateway Gateway, ledger bookingLedger, catalog catalogReader, notifier Notifier, scheduler CommissionScheduler, cfg ProcessorConfig, loggerf func(format string, args ...interface{})) *Processor {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if cfg.WriteRetries < 1 {
		cfg.WriteRetries = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	return &Processor{
		gateway:      gateway,
		ledger:       ledger,
		catalog:      catalog,
		notifier:     notifier,
		scheduler:    scheduler,
		loggerf:      loggerf,
		writeRetries: cfg.WriteRetries,
		retryBackoff: cfg.RetryBackoff,
		deferred:     methodSet(cfg.DeferredMethods),
	}
}

// IsDeferred reports whether method needs out-of-band commission collection.
func (p *Processor) IsDeferred(method string) bool {
	return p.deferred[strings.ToLower(strings.TrimSpace(method))]
}

// HandleWebhook verifies payload and processes the event it carries. The
// signature is checked before any write, and a cancelled ctx after
// verification aborts with nothing written.
func (p *Processor) HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error) {
	ctx, span := tracer.Start(ctx, "payment.HandleWebhook")
	defer span.End()

	evt, err := p.gateway.VerifyEvent(ctx, payload, signature)
	if err != nil {
		span.SetStatus(codes.Error, "verification failed")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if !errors.Is(err, ErrAuthentication) {
			err = fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		p.loggerf("level=warn msg=payment event rejected err=%v", err)
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("payment.event_id", evt.ID),
		attribute.String("payment.event_type", evt.Type),
		attribute.String("payment.correlation_id", evt.CorrelationID),
	)

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	res, err := p.Process(ctx, evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// Process handles an already verified event.
func (p *Processor) Process(ctx context.Context, evt *Event) (Result, error) {
	res := Result{EventID: evt.ID, EventType: evt.Type, CorrelationID: evt.CorrelationID}

	switch evt.Type {
	case EventIntentSucceeded:
		return p.handleSucceeded(ctx, evt, res)
	case EventIntentFailed, EventIntentCanceled:
		return p.handleFailed(ctx, evt, res)
	default:
		res.Outcome = OutcomeIgnored
		p.loggerf("level=info msg=payment event ignored event_id=%s type=%s", evt.ID, evt.Type)
		return res, nil
	}
}

func (p *Processor) handleSucceeded(ctx context.Context, evt *Event, res Result) (Result, error) {
	if strings.TrimSpace(evt.CorrelationID) == "" {
		return p.reject(res, fmt.Errorf("%w: event %s has no payment intent id", ErrClassification, evt.ID))
	}

	payload, err := Classify(evt.Metadata)
	if err != nil {
		return p.reject(res, err)
	}

	tenant, err := p.catalog.GetTenant(ctx, payload.Tenant())
	if err != nil {
		if errors.Is(err, catalog.ErrTenantNotFound) {
			return p.reject(res, fmt.Errorf("%w: tenant %d not found", ErrClassification, payload.Tenant()))
		}
		return res, fmt.Errorf("%w: load tenant: %v", ErrTransient, err)
	}
	if rid := payload.Resource(); rid != nil {
		r, err := p.catalog.GetResource(ctx, *rid)
		switch {
		case errors.Is(err, catalog.ErrResourceNotFound):
			return p.reject(res, fmt.Errorf("%w: resource %d not found", ErrClassification, *rid))
		case err != nil:
			return res, fmt.Errorf("%w: load resource: %v", ErrTransient, err)
		case !r.IsActive:
			return p.reject(res, fmt.Errorf("%w: resource %d is inactive", ErrClassification, *rid))
		case r.TenantID != tenant.ID:
			return p.reject(res, fmt.Errorf("%w: resource %d is not owned by tenant %d", ErrClassification, *rid, tenant.ID))
		}
	}

	if evt.AmountMinor <= 0 {
		return p.reject(res, fmt.Errorf("%w: non-positive amount %d", ErrClassification, evt.AmountMinor))
	}
	deferred := p.IsDeferred(evt.PaymentMethodType)
	split, err := p.splitFor(evt, tenant, payload.Kind(), deferred)
	if err != nil {
		return p.reject(res, err)
	}

	draft := payload.draft()
	draft.ApplySplit(split)
	draft.Currency = strings.ToLower(evt.Currency)
	if draft.Currency == "" {
		draft.Currency = tenant.Currency
	}
	draft.CommissionDeferred = deferred

	b, created, err := p.createWithRetry(ctx, evt.CorrelationID, payload.Kind(), draft)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrConflict):
			// Payment captured but the slot is taken. Not refunded here.
			p.loggerf("level=error alert=true msg=double booking refused correlation_id=%s resource_id=%v window=%s err=%v",
				evt.CorrelationID, derefID(payload.Resource()), draft.Window(), err)
			res.Outcome = OutcomeRejected
			return res, err
		case errors.Is(err, booking.ErrResourceUnavailable), errors.Is(err, booking.ErrKindMismatch), errors.Is(err, booking.ErrValidation):
			return p.reject(res, fmt.Errorf("%w: %v", ErrClassification, err))
		case errors.Is(err, money.ErrInvalidSplit):
			return p.reject(res, err)
		default:
			return res, fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}

	res.BookingID = b.ID
	res.Outcome = OutcomeDuplicate
	if created {
		res.Outcome = OutcomeCreated
	}
	p.loggerf("level=info msg=payment event handled event_id=%s correlation_id=%s booking_id=%d outcome=%s gross=%d commission=%d owner=%d",
		evt.ID, evt.CorrelationID, b.ID, res.Outcome, b.GrossMinor, b.CommissionMinor, b.OwnerMinor)

	if (created || !b.NotificationSent) && p.notifier != nil {
		p.notifier.Dispatch(*b)
	}
	if b.CommissionDeferred && p.scheduler != nil {
		dc := DeferredCommission{
			BookingID:     b.ID,
			TenantID:      tenant.ID,
			CorrelationID: evt.CorrelationID,
			SubAccountID:  tenant.SubAccountID,
			AmountMinor:   b.CommissionMinor,
			Currency:      b.Currency,
		}
		if err := p.scheduler.Schedule(ctx, dc); err != nil {
			p.loggerf("level=error msg=deferred commission not scheduled correlation_id=%s err=%v", evt.CorrelationID, err)
		}
	}
	return res, nil
}

// splitFor prefers the fee the processor actually captured inline over a
// recompute from the tenant's current rate, which may have changed since
// checkout.
func (p *Processor) splitFor(evt *Event, tenant *catalog.Tenant, kind booking.Kind, deferred bool) (money.Split, error) {
	computed, cerr := p.computeSplit(evt.AmountMinor, tenant, kind)
	if deferred || evt.ApplicationFeeMinor <= 0 {
		return computed, cerr
	}

	captured, err := money.SplitCaptured(evt.AmountMinor, evt.ApplicationFeeMinor)
	if err != nil {
		return money.Split{}, err
	}
	if cerr != nil || computed.CommissionMinor != captured.CommissionMinor {
		p.loggerf("level=warn alert=true msg=captured fee differs from tenant rate correlation_id=%s tenant_id=%d captured=%d computed=%d err=%v",
			evt.CorrelationID, tenant.ID, captured.CommissionMinor, computed.CommissionMinor, cerr)
	}
	return captured, nil
}

func (p *Processor) computeSplit(grossMinor int64, tenant *catalog.Tenant, kind booking.Kind) (money.Split, error) {
	rate, err := tenant.CommissionRateFor(kind.DayUse())
	if err != nil {
		return money.Split{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return money.SplitMinor(grossMinor, rate, tenant.FixedFeeMinor)
}

func (p *Processor) handleFailed(ctx context.Context, evt *Event, res Result) (Result, error) {
	if strings.TrimSpace(evt.CorrelationID) == "" {
		res.Outcome = OutcomeIgnored
		return res, nil
	}
	n, err := p.ledger.MarkFailed(ctx, evt.CorrelationID)
	if err != nil {
		return res, fmt.Errorf("%w: mark failed: %v", ErrTransient, err)
	}
	res.Outcome = OutcomeFailed
	if n == 0 {
		res.Outcome = OutcomeIgnored
	}
	p.loggerf("level=info msg=payment failure recorded event_id=%s correlation_id=%s rows=%d", evt.ID, evt.CorrelationID, n)
	return res, nil
}

func (p *Processor) createWithRetry(ctx context.Context, correlationID string, kind booking.Kind, draft *booking.Booking) (*booking.Booking, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= p.writeRetries; attempt++ {
		b, created, err := p.ledger.CreateIdempotent(ctx, correlationID, kind, clone(draft))
		if err == nil {
			return b, created, nil
		}
		if isLedgerPermanent(err) {
			return nil, false, err
		}
		lastErr = err
		p.loggerf("level=warn msg=ledger write failed correlation_id=%s attempt=%d err=%v", correlationID, attempt, err)
		if attempt == p.writeRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(p.retryBackoff * time.Duration(attempt)):
		}
	}
	return nil, false, lastErr
}

func (p *Processor) reject(res Result, err error) (Result, error) {
	res.Outcome = OutcomeRejected
	p.loggerf("level=error alert=true msg=payment event rejected event_id=%s correlation_id=%s err=%v", res.EventID, res.CorrelationID, err)
	return res, err
}

func isLedgerPermanent(err error) bool {
	return errors.Is(err, booking.ErrConflict) ||
		errors.Is(err, booking.ErrResourceUnavailable) ||
		errors.Is(err, booking.ErrKindMismatch) ||
		errors.Is(err, booking.ErrValidation) ||
		errors.Is(err, money.ErrInvalidSplit) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func clone(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}

func derefID(id *int64) any {
	if id == nil {
		return "none"
	}
	return *id
}

func methodSet(methods []string) map[string]bool {
	out := make(map[string]bool, len(methods))
	for _, m := range methods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out[m] = true
		}
	}
	return out
}
