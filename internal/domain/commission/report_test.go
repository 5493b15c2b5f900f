package commission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
)

func TestReport_FlagsDiscrepancies(t *testing.T) {
	e := setupTestEnv(t)
	ctx := context.Background()
	c := e.collector(&mockGateway{}, DefaultBackoff())

	other := &catalog.Tenant{Name: "Dune Camp", Currency: "eur", SubAccountID: "acct_dune", CommissionRate: decimal.NewFromInt(8)}
	require.NoError(t, e.catalog.CreateTenant(ctx, other))

	// acct_owner: one collected, one failed, one never queued.
	ok := e.deferredBooking(t, e.tenant, "pi_ok", 1000)
	failed := e.deferredBooking(t, e.tenant, "pi_failed", 700)
	e.deferredBooking(t, e.tenant, "pi_lost", 300)
	require.NoError(t, c.Schedule(ctx, ok))
	require.NoError(t, c.Schedule(ctx, failed))
	okCol := e.get(t, "pi_ok")
	require.NoError(t, e.repo.MarkCollected(ctx, okCol.ID, 1, Receipt{TransferID: "tr_ok", AmountMinor: 1000, CollectedAt: e.now}))
	require.NoError(t, e.repo.MarkTerminal(ctx, e.get(t, "pi_failed").ID, StatusFailed, 8, "boom"))

	// acct_dune: still in flight, within expectations.
	require.NoError(t, c.Schedule(ctx, e.deferredBooking(t, other, "pi_dune", 900)))

	from := booking.Date(e.now).AddDate(0, 0, -1)
	to := booking.Date(e.now).AddDate(0, 0, 2)
	report, err := e.repo.Report(ctx, from, to, 5)
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	assert.Equal(t, 1, report.Discrepancies)

	dune := report.Lines[0]
	assert.Equal(t, "acct_dune", dune.SubAccountID)
	assert.Equal(t, int64(900), dune.ExpectedMinor)
	assert.Equal(t, int64(900), dune.InFlightMinor)
	assert.Equal(t, 1, dune.Pending)
	assert.False(t, dune.Discrepancy)

	owner := report.Lines[1]
	assert.Equal(t, "acct_owner", owner.SubAccountID)
	assert.Equal(t, "eur", owner.Currency)
	assert.Equal(t, int64(3), owner.Bookings)
	assert.Equal(t, int64(2000), owner.ExpectedMinor)
	assert.Equal(t, int64(1000), owner.CollectedMinor)
	assert.Equal(t, int64(1000), owner.OutstandingMinor)
	assert.Equal(t, 1, owner.Failed)
	assert.Equal(t, int64(1), owner.Missing)
	assert.True(t, owner.Discrepancy)

	// Outside the window nothing is reported.
	empty, err := e.repo.Report(ctx, from.AddDate(-1, 0, 0), from.AddDate(0, -6, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
}

func TestReport_WithinTolerance(t *testing.T) {
	e := setupTestEnv(t)
	ctx := context.Background()
	c := e.collector(&mockGateway{}, DefaultBackoff())
	require.NoError(t, c.Schedule(ctx, e.deferredBooking(t, e.tenant, "pi_round", 1001)))
	col := e.get(t, "pi_round")
	require.NoError(t, e.repo.MarkCollected(ctx, col.ID, 1, Receipt{TransferID: "tr", AmountMinor: 1000, CollectedAt: e.now}))

	report, err := e.repo.Report(ctx, booking.Date(e.now), booking.Date(e.now).AddDate(0, 0, 1), 1)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assert.False(t, report.Lines[0].Discrepancy)
	assert.Equal(t, 0, report.Discrepancies)
	// A one-day range reports the same inclusive first and last day.
	assert.Equal(t, booking.FormatDate(booking.Date(e.now)), report.From)
	assert.Equal(t, booking.FormatDate(booking.Date(e.now)), report.To)
}

func TestReportRange(t *testing.T) {
	now := time.Date(2025, 7, 31, 15, 0, 0, 0, time.UTC)

	from, to, err := ReportRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", booking.FormatDate(from))
	assert.Equal(t, "2025-08-01", booking.FormatDate(to))

	from, to, err = ReportRange("2025-06-01", "2025-06-30", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", booking.FormatDate(from))
	assert.Equal(t, "2025-07-01", booking.FormatDate(to))

	_, _, err = ReportRange("2025-07-02", "2025-07-01", now)
	assert.Error(t, err)
	_, _, err = ReportRange("07/01/2025", "", now)
	assert.Error(t, err)
}

func setupOpsRouter(e *testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(e.repo, 5)
	r := gin.New()
	h.RegisterOperatorRoutes(r.Group("/api/v1"))
	return r
}

func TestHandler_ReportAndRetry(t *testing.T) {
	e := setupTestEnv(t)
	ctx := context.Background()
	c := e.collector(&mockGateway{}, DefaultBackoff())
	require.NoError(t, c.Schedule(ctx, e.deferredBooking(t, e.tenant, "pi_h", 800)))
	col := e.get(t, "pi_h")
	require.NoError(t, e.repo.MarkTerminal(ctx, col.ID, StatusFailed, 8, "boom"))
	r := setupOpsRouter(e)

	today := booking.FormatDate(e.now)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ops/commissions/report?from="+today+"&to="+today, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Success bool   `json:"success"`
		Data    Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Data.Discrepancies)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ops/commissions/report?from=bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ops/commissions/"+col.ID+"/retry", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, StatusPending, e.get(t, "pi_h").Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ops/commissions/"+col.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ops/commissions/nope/retry", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorker_RegistersJobs(t *testing.T) {
	e := setupTestEnv(t)
	w, err := NewWorker(nil)
	require.NoError(t, err)
	require.NoError(t, w.AddCollector(e.collector(&mockGateway{}, DefaultBackoff()), time.Hour))
	require.NoError(t, w.Every("noop", time.Hour, time.Second, func(context.Context) {}))
	w.Start()
	assert.Len(t, w.sched.Jobs(), 2)
	assert.NoError(t, w.Stop())
}
