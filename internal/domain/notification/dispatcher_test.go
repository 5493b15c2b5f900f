package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	err   error
	delay time.Duration
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type failingRecorder struct{}

func (failingRecorder) RecordNotification(context.Context, int64, string, time.Time) error {
	return errors.New("database is locked")
}

type fakeSink struct {
	name  string
	err   error
	mu    sync.Mutex
	calls int
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Publish(context.Context, BookingCompleted) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 3, s.err
	}
	return 1, nil
}

type dispatchEnv struct {
	ledger     *booking.Ledger
	catalog    *catalog.Repository
	deliveries *DeliveryRepository
	booking    *booking.Booking
}

func setupDispatchEnv(t *testing.T) *dispatchEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&catalog.Tenant{}, &catalog.Resource{}, &booking.Booking{}, &Delivery{}))

	ctx := context.Background()
	repo := catalog.NewRepository(db)
	tenant := &catalog.Tenant{Name: "Harbor Inn", Currency: "eur", CommissionRate: decimal.NewFromInt(6), FixedFeeMinor: 150}
	require.NoError(t, repo.CreateTenant(ctx, tenant))
	res := &catalog.Resource{TenantID: tenant.ID, Name: "r1", PriceMinor: 5000, IsActive: true}
	require.NoError(t, repo.CreateResource(ctx, res))

	ledger := booking.NewLedger(db)
	b := sampleBooking("fr")
	b.ID = 0
	b.TenantID = tenant.ID
	b.ResourceID = &res.ID
	created, _, err := ledger.CreateIdempotent(ctx, b.CorrelationID(), b.Kind, &b)
	require.NoError(t, err)

	return &dispatchEnv{ledger: ledger, catalog: repo, deliveries: NewDeliveryRepository(db), booking: created}
}

func (e *dispatchEnv) channels(t *testing.T) map[Channel]DeliveryStatus {
	t.Helper()
	rows, err := e.deliveries.ListByBooking(context.Background(), e.booking.ID)
	require.NoError(t, err)
	out := make(map[Channel]DeliveryStatus, len(rows))
	for _, r := range rows {
		out[r.Channel] = r.Status
	}
	return out
}

func TestDispatcher_SendsAndRecords(t *testing.T) {
	e := setupDispatchEnv(t)
	mailer := &fakeMailer{}
	hook := &fakeSink{name: "webhook"}
	d := NewDispatcher(Deps{
		Mailer: mailer, Ledger: e.ledger, Tenants: e.catalog,
		Deliveries: e.deliveries, Sinks: []Sink{hook},
	}, Config{}, nil)

	d.Dispatch(*e.booking)
	d.Wait()

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "ada@example.com|Votre réservation chez Harbor Inn est confirmée (SB-000001)", mailer.sent[0])
	assert.Equal(t, 1, hook.calls)

	got, err := e.ledger.GetByID(context.Background(), e.booking.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)
	assert.Equal(t, "email", got.NotificationMethod)
	assert.NotNil(t, got.NotifiedAt)

	assert.Equal(t, map[Channel]DeliveryStatus{ChannelEmail: DeliverySent, ChannelWebhook: DeliverySent}, e.channels(t))

	// Already notified: nothing is sent again.
	d.Notify(context.Background(), *got)
	assert.Equal(t, 1, mailer.count())
}

func TestDispatcher_ConcurrentDispatchSendsOnce(t *testing.T) {
	e := setupDispatchEnv(t)
	mailer := &fakeMailer{delay: 20 * time.Millisecond}
	d := NewDispatcher(Deps{Mailer: mailer, Ledger: e.ledger}, Config{}, nil)

	for i := 0; i < 3; i++ {
		d.Dispatch(*e.booking)
	}
	d.Wait()
	assert.Equal(t, 1, mailer.count())
}

func TestDispatcher_MailFailureIsIsolated(t *testing.T) {
	e := setupDispatchEnv(t)
	mailer := &fakeMailer{err: errors.New("smtp: 421 try later")}
	hook := &fakeSink{name: "webhook", err: ErrWebhookDispatch}
	amqp := &fakeSink{name: "amqp"}
	d := NewDispatcher(Deps{
		Mailer: mailer, Ledger: e.ledger, Deliveries: e.deliveries, Sinks: []Sink{hook, amqp},
	}, Config{}, nil)

	d.Notify(context.Background(), *e.booking)

	got, err := e.ledger.GetByID(context.Background(), e.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentSucceeded, got.PaymentStatus)
	assert.False(t, got.NotificationSent)
	assert.Equal(t, 1, amqp.calls, "a failing sink does not stop the next one")
	assert.Equal(t, map[Channel]DeliveryStatus{
		ChannelEmail: DeliveryFailed, ChannelWebhook: DeliveryFailed, ChannelAMQP: DeliverySent,
	}, e.channels(t))

	// The guard was released, so a later redelivery can retry the notice.
	mailer.err = nil
	d.Notify(context.Background(), *got)
	assert.Equal(t, 1, mailer.count())
}

func TestDispatcher_RecordFailureIsNotNotificationFailure(t *testing.T) {
	e := setupDispatchEnv(t)
	mailer := &fakeMailer{}
	var logs []string
	var mu sync.Mutex
	loggerf := func(format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, args...))
	}
	d := NewDispatcher(Deps{Mailer: mailer, Ledger: failingRecorder{}, Deliveries: e.deliveries}, Config{}, loggerf)

	d.Notify(context.Background(), *e.booking)

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, DeliverySent, e.channels(t)[ChannelEmail])
	joined := strings.Join(logs, "\n")
	assert.Contains(t, joined, "msg=notification_record_failed")
	assert.NotContains(t, joined, "msg=notification_failed")
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	e := setupDispatchEnv(t)
	d := NewDispatcher(Deps{Mailer: panicMailer{}, Ledger: e.ledger}, Config{Timeout: time.Second}, nil)

	assert.NotPanics(t, func() {
		d.Dispatch(*e.booking)
		d.Wait()
	})
}

type panicMailer struct{}

func (panicMailer) Send(context.Context, string, string, string) error { panic("boom") }

func TestCleanupService(t *testing.T) {
	e := setupDispatchEnv(t)
	ctx := context.Background()
	require.NoError(t, e.deliveries.Record(ctx, &Delivery{BookingID: e.booking.ID, Channel: ChannelEmail, Status: DeliverySent}))
	old := &Delivery{BookingID: e.booking.ID, Channel: ChannelWebhook, Status: DeliveryFailed, CreatedAt: time.Now().UTC().AddDate(0, 0, -120)}
	require.NoError(t, e.deliveries.Record(ctx, old))

	deleted, err := NewCleanupService(e.deliveries, nil).CleanupOldDeliveries(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := e.deliveries.ListByBooking(ctx, e.booking.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ChannelEmail, rows[0].Channel)
}
