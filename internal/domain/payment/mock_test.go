package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) VerifyEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	args := m.Called(ctx, payload, signature)
	evt, _ := args.Get(0).(*Event)
	return evt, args.Error(1)
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	args := m.Called(ctx, p)
	in, _ := args.Get(0).(*Intent)
	return in, args.Error(1)
}

func (m *mockGateway) RetrievePaymentIntent(ctx context.Context, id, onAccount string) (*Intent, error) {
	args := m.Called(ctx, id, onAccount)
	in, _ := args.Get(0).(*Intent)
	return in, args.Error(1)
}

func (m *mockGateway) RetrieveAccount(ctx context.Context, id string) (*Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*Account)
	return acc, args.Error(1)
}

func (m *mockGateway) CreateTransfer(ctx context.Context, p TransferParams) (*Transfer, error) {
	args := m.Called(ctx, p)
	tr, _ := args.Get(0).(*Transfer)
	return tr, args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []int64
}

func (n *recordingNotifier) Dispatch(b booking.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, b.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []DeferredCommission
	err   error
}

func (s *recordingScheduler) Schedule(_ context.Context, dc DeferredCommission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, dc)
	return s.err
}

type env struct {
	db       *gorm.DB
	ledger   *booking.Ledger
	catalog  *catalog.Repository
	tenant   *catalog.Tenant
	resource *catalog.Resource
}

func setupTestEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&catalog.Tenant{}, &catalog.Resource{}, &booking.Booking{}))

	repo := catalog.NewRepository(db)
	ctx := context.Background()
	tenant := &catalog.Tenant{
		Name:                 "Harbor Inn",
		Currency:             "eur",
		SubAccountID:         "acct_owner",
		CommissionRate:       decimal.NewFromInt(6),
		DayUseCommissionRate: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		FixedFeeMinor:        150,
	}
	require.NoError(t, repo.CreateTenant(ctx, tenant))
	res := &catalog.Resource{TenantID: tenant.ID, Name: "r1", PriceMinor: 5000, IsActive: true, DayUseAllowed: true}
	require.NoError(t, repo.CreateResource(ctx, res))

	return &env{db: db, ledger: booking.NewLedger(db), catalog: repo, tenant: tenant, resource: res}
}

func (e *env) succeededEvent(cid, checkIn, checkOut string) *Event {
	return &Event{
		ID:                "evt_" + cid,
		Type:              EventIntentSucceeded,
		CorrelationID:     cid,
		AmountMinor:       25000,
		Currency:          "EUR",
		PaymentMethodType: "card",
		Metadata: map[string]string{
			MetaKind:       "night_stay",
			MetaTenantID:   fmt.Sprint(e.tenant.ID),
			MetaResourceID: fmt.Sprint(e.resource.ID),
			MetaFirstName:  "Ada",
			MetaLastName:   "Lovelace",
			MetaEmail:      "ada@example.com",
			MetaLocale:     "en",
			MetaCheckIn:    checkIn,
			MetaCheckOut:   checkOut,
			MetaAdults:     "2",
		},
	}
}

func (e *env) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&booking.Booking{}).Count(&n).Error)
	return n
}
