package commission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"staybook/internal/domain/payment"
)

var tracer = otel.Tracer("staybook/commission")

type gateway interface {
	RetrievePaymentIntent(ctx context.Context, id, onAccount string) (*payment.Intent, error)
	CreateTransfer(ctx context.Context, p payment.TransferParams) (*payment.Transfer, error)
}

type store interface {
	Enqueue(ctx context.Context, c *Collection) (*Collection, bool, error)
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Collection, error)
	MarkCollected(ctx context.Context, id string, attempts int, rc Receipt) error
	MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkTerminal(ctx context.Context, id string, status Status, attempts int, lastErr string) error
}

type CollectorConfig struct {
	// PlatformAccountID receives the collected commission.
	PlatformAccountID string
	Backoff           BackoffPolicy
	BatchSize         int
	AttemptTimeout    time.Duration
}

// Collector issues compensating transfers for commissions that could not be
// taken inline. It never touches the booking ledger.
type Collector struct {
	gw      gateway
	store   store
	cfg     CollectorConfig
	loggerf func(format string, args ...interface{})
	now     func() time.Time
}

func NewCollector(gw gateway, st store, cfg CollectorConfig, loggerf func(format string, args ...interface{})) *Collector {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	return &Collector{gw: gw, store: st, cfg: cfg, loggerf: loggerf, now: time.Now}
}

// Schedule durably queues a deferred commission for the worker.
func (c *Collector) Schedule(ctx context.Context, dc payment.DeferredCommission) error {
	if dc.AmountMinor <= 0 {
		c.loggerf("level=info msg=deferred_commission_skipped correlation_id=%s reason=zero_amount", dc.CorrelationID)
		return nil
	}
	if dc.SubAccountID == "" {
		return fmt.Errorf("%w: booking %d has no sub-account", ErrDeferredCollection, dc.BookingID)
	}

	col, created, err := c.store.Enqueue(ctx, &Collection{
		BookingID:     dc.BookingID,
		TenantID:      dc.TenantID,
		CorrelationID: dc.CorrelationID,
		SubAccountID:  dc.SubAccountID,
		AmountMinor:   dc.AmountMinor,
		Currency:      dc.Currency,
		Status:        StatusPending,
		NextAttemptAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: enqueue %s: %v", ErrDeferredCollection, dc.CorrelationID, err)
	}
	if created {
		c.loggerf("level=info msg=deferred_commission_scheduled collection_id=%s correlation_id=%s amount_minor=%d",
			col.ID, dc.CorrelationID, dc.AmountMinor)
	}
	return nil
}

// CollectDeferred confirms the originating payment succeeded and transfers the
// commission from the sub-account to the platform account.
func (c *Collector) CollectDeferred(ctx context.Context, col Collection) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "commission.CollectDeferred")
	defer span.End()
	span.SetAttributes(
		attribute.String("commission.collection_id", col.ID),
		attribute.String("payment.correlation_id", col.CorrelationID),
		attribute.Int64("commission.amount_minor", col.AmountMinor),
	)

	receipt, err := c.collect(ctx, col)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return receipt, nil
}

func (c *Collector) collect(ctx context.Context, col Collection) (*Receipt, error) {
	if c.cfg.PlatformAccountID == "" {
		return nil, fmt.Errorf("%w: platform account is not configured", ErrDeferredCollection)
	}

	intent, err := c.gw.RetrievePaymentIntent(ctx, col.CorrelationID, col.SubAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve %s: %v", ErrDeferredCollection, col.CorrelationID, err)
	}
	switch intent.Status {
	case payment.IntentSucceeded:
	case payment.IntentCanceled:
		return nil, fmt.Errorf("%w: %s", ErrPaymentCanceled, col.CorrelationID)
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentNotFinal, col.CorrelationID, intent.Status)
	}

	tr, err := c.gw.CreateTransfer(ctx, payment.TransferParams{
		AmountMinor:    col.AmountMinor,
		Currency:       col.Currency,
		FromAccount:    col.SubAccountID,
		Destination:    c.cfg.PlatformAccountID,
		SourceIntentID: col.CorrelationID,
		IdempotencyKey: col.IdempotencyKey(),
		Metadata: map[string]string{
			"collection_id": col.ID,
			"booking_id":    strconv.FormatInt(col.BookingID, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transfer %s: %v", ErrDeferredCollection, col.CorrelationID, err)
	}

	return &Receipt{
		CollectionID: col.ID,
		TransferID:   tr.ID,
		AmountMinor:  tr.AmountMinor,
		Currency:     tr.Currency,
		CollectedAt:  c.now().UTC(),
	}, nil
}

// RunOnce claims the due collections and attempts each one. It returns the
// number attempted.
func (c *Collector) RunOnce(ctx context.Context) (int, error) {
	lease := c.cfg.AttemptTimeout * 2
	due, err := c.store.ClaimDue(ctx, c.now(), c.cfg.BatchSize, lease)
	if err != nil {
		return 0, fmt.Errorf("claim due collections: %w", err)
	}
	for _, col := range due {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		c.attempt(ctx, col)
	}
	return len(due), nil
}

func (c *Collector) attempt(ctx context.Context, col Collection) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	attempts := col.Attempts + 1
	receipt, err := c.CollectDeferred(actx, col)
	if err == nil {
		if merr := c.store.MarkCollected(ctx, col.ID, attempts, *receipt); merr != nil {
			// The transfer is idempotent on the collection id, so the next
			// claim re-issues it harmlessly.
			c.loggerf("level=error msg=commission_mark_collected_failed collection_id=%s transfer_id=%s err=%v",
				col.ID, receipt.TransferID, merr)
			return
		}
		c.loggerf("level=info msg=commission_collected collection_id=%s correlation_id=%s transfer_id=%s amount_minor=%d attempts=%d",
			col.ID, col.CorrelationID, receipt.TransferID, receipt.AmountMinor, attempts)
		return
	}

	if errors.Is(err, ErrPaymentCanceled) {
		c.loggerf("level=warn msg=commission_abandoned collection_id=%s correlation_id=%s reason=payment_canceled alert=true",
			col.ID, col.CorrelationID)
		c.mark(c.store.MarkTerminal(ctx, col.ID, StatusAbandoned, attempts, err.Error()), col)
		return
	}

	if c.cfg.Backoff.Exhausted(attempts) {
		c.loggerf("level=error msg=commission_collection_failed collection_id=%s correlation_id=%s attempts=%d err=%v alert=true",
			col.ID, col.CorrelationID, attempts, err)
		c.mark(c.store.MarkTerminal(ctx, col.ID, StatusFailed, attempts, err.Error()), col)
		return
	}

	next := c.now().Add(c.cfg.Backoff.Delay(attempts))
	c.loggerf("level=warn msg=commission_collection_retry collection_id=%s correlation_id=%s attempts=%d next_attempt_at=%s err=%v",
		col.ID, col.CorrelationID, attempts, next.UTC().Format(time.RFC3339), err)
	c.mark(c.store.MarkRetry(ctx, col.ID, attempts, next, err.Error()), col)
}

func (c *Collector) mark(err error, col Collection) {
	if err != nil {
		c.loggerf("level=error msg=commission_state_update_failed collection_id=%s err=%v", col.ID, err)
	}
}
