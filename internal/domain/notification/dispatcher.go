package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
)

type notificationRecorder interface {
	RecordNotification(ctx context.Context, bookingID int64, method string, at time.Time) error
}

type tenantReader interface {
	GetTenant(ctx context.Context, id int64) (*catalog.Tenant, error)
}

type deliveryLog interface {
	Record(ctx context.Context, d *Delivery) error
}

// Deps are the collaborators of a Dispatcher. Only Ledger is required.
type Deps struct {
	Mailer     Mailer
	Ledger     notificationRecorder
	Tenants    tenantReader
	Deliveries deliveryLog
	Guard      Guard
	Sinks      []Sink
}

type Config struct {
	Timeout  time.Duration
	GuardTTL time.Duration
}

// Dispatcher runs the post-booking side effects. Every failure is logged and
// recorded; none is returned to the caller.
type Dispatcher struct {
	deps    Deps
	cfg     Config
	loggerf func(format string, args ...interface{})
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewDispatcher(deps Deps, cfg Config, loggerf func(format string, args ...interface{})) *Dispatcher {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.GuardTTL <= 0 {
		cfg.GuardTTL = 10 * time.Minute
	}
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	return &Dispatcher{deps: deps, cfg: cfg, loggerf: loggerf, now: time.Now}
}

// Dispatch runs Notify in the background with its own timeout.
func (d *Dispatcher) Dispatch(b booking.Booking) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.loggerf("level=error msg=dispatch_panic booking_id=%d panic=%v alert=true", b.ID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		d.Notify(ctx, b)
	}()
}

// Wait blocks until every background dispatch has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify sends the confirmation notice and fans the event out to the sinks.
func (d *Dispatcher) Notify(ctx context.Context, b booking.Booking) {
	if b.NotificationSent {
		d.loggerf("level=info msg=notification_already_sent booking_id=%d", b.ID)
		return
	}

	key := fmt.Sprintf("notify:booking:%d", b.ID)
	acquired, err := d.deps.Guard.Acquire(ctx, key, d.cfg.GuardTTL)
	if err != nil {
		d.loggerf("level=warn msg=dispatch_guard_unavailable booking_id=%d err=%v", b.ID, err)
		acquired = true
	}
	if !acquired {
		d.loggerf("level=info msg=dispatch_in_progress booking_id=%d", b.ID)
		return
	}

	if err := d.sendNotice(ctx, b); err != nil {
		d.loggerf("level=error msg=notification_failed booking_id=%d err=%v", b.ID, err)
		if rerr := d.deps.Guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
			d.loggerf("level=warn msg=dispatch_guard_release_failed booking_id=%d err=%v", b.ID, rerr)
		}
	}

	evt := NewBookingCompleted(b, d.now())
	for _, s := range d.deps.Sinks {
		d.publish(ctx, s, evt)
	}
}

func (d *Dispatcher) sendNotice(ctx context.Context, b booking.Booking) error {
	if d.deps.Mailer == nil || b.GuestEmail == "" {
		d.record(ctx, &Delivery{BookingID: b.ID, Channel: ChannelEmail, Status: DeliverySkipped})
		return nil
	}

	notice, err := Render(b, d.tenantName(ctx, b.TenantID))
	if err != nil {
		d.record(ctx, &Delivery{BookingID: b.ID, Channel: ChannelEmail, Status: DeliveryFailed, Error: err.Error()})
		return err
	}

	if err := d.deps.Mailer.Send(ctx, b.GuestEmail, notice.Subject, notice.Body); err != nil {
		err = fmt.Errorf("%w: %v", ErrNotification, err)
		d.record(ctx, &Delivery{
			BookingID: b.ID, Channel: ChannelEmail, Status: DeliveryFailed,
			Attempts: 1, Locale: notice.Locale, Error: err.Error(),
		})
		return err
	}

	d.record(ctx, &Delivery{BookingID: b.ID, Channel: ChannelEmail, Status: DeliverySent, Attempts: 1, Locale: notice.Locale})
	d.loggerf("level=info msg=notification_sent booking_id=%d locale=%s", b.ID, notice.Locale)

	// Recording is separate from sending: a failure here is not a failed notice.
	if err := d.deps.Ledger.RecordNotification(context.WithoutCancel(ctx), b.ID, string(ChannelEmail), d.now()); err != nil {
		d.loggerf("level=warn msg=notification_record_failed booking_id=%d err=%v", b.ID, err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, s Sink, evt BookingCompleted) {
	attempts, err := s.Publish(ctx, evt)
	if err != nil {
		d.loggerf("level=error msg=downstream_dispatch_failed sink=%s booking_id=%d attempts=%d status=failed err=%v",
			s.Name(), evt.BookingID, attempts, err)
		d.record(ctx, &Delivery{
			BookingID: evt.BookingID, Channel: Channel(s.Name()), Status: DeliveryFailed,
			Attempts: attempts, Error: err.Error(),
		})
		return
	}
	d.loggerf("level=info msg=downstream_dispatched sink=%s booking_id=%d attempts=%d status=sent",
		s.Name(), evt.BookingID, attempts)
	d.record(ctx, &Delivery{BookingID: evt.BookingID, Channel: Channel(s.Name()), Status: DeliverySent, Attempts: attempts})
}

func (d *Dispatcher) tenantName(ctx context.Context, tenantID int64) string {
	if d.deps.Tenants == nil {
		return ""
	}
	t, err := d.deps.Tenants.GetTenant(ctx, tenantID)
	if err != nil {
		d.loggerf("level=warn msg=notice_tenant_lookup_failed tenant_id=%d err=%v", tenantID, err)
		return ""
	}
	return t.Name
}

func (d *Dispatcher) record(ctx context.Context, del *Delivery) {
	if d.deps.Deliveries == nil {
		return
	}
	if err := d.deps.Deliveries.Record(context.WithoutCancel(ctx), del); err != nil {
		d.loggerf("level=warn msg=delivery_record_failed booking_id=%d channel=%s err=%v", del.BookingID, del.Channel, err)
	}
}
