package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/catalog"
)

func (f *fixture) succeed(t *testing.T, cid, in, out string) *Booking {
	t.Helper()
	b, _, err := f.ledger.CreateIdempotent(context.Background(), cid, KindNightStay, f.draft(in, out))
	require.NoError(t, err)
	return b
}

func TestIsAvailable_HalfOpenAndPendingOptIn(t *testing.T) {
	f := setupTestLedger(t)
	ctx := context.Background()
	a := NewAvailability(f.ledger, f.catalog)

	booked := f.succeed(t, "pi_a", "2025-07-10", "2025-07-15")

	ok, err := a.IsAvailable(ctx, f.resource.ID, NewWindow(day("2025-07-15"), day("2025-07-18")), Options{})
	require.NoError(t, err)
	assert.True(t, ok, "checkout day is free for the next check-in")

	ok, err = a.IsAvailable(ctx, f.resource.ID, NewWindow(day("2025-07-05"), day("2025-07-10")), Options{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsAvailable(ctx, f.resource.ID, NewWindow(day("2025-07-14"), day("2025-07-20")), Options{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.IsAvailable(ctx, f.resource.ID, NewWindow(day("2025-07-14"), day("2025-07-20")), Options{ExcludeBookingID: booked.ID})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.ledger.CreatePending(ctx, "pi_hold", f.draft("2025-08-01", "2025-08-04"))
	require.NoError(t, err)

	w := NewWindow(day("2025-08-02"), day("2025-08-03"))
	ok, err = a.IsAvailable(ctx, f.resource.ID, w, Options{})
	require.NoError(t, err)
	assert.True(t, ok, "pending holds do not reserve inventory by default")

	ok, err = a.IsAvailable(ctx, f.resource.ID, w, Options{IncludePending: true})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.IsAvailable(ctx, f.resource.ID, NewWindow(day("2025-08-02"), day("2025-08-02")), Options{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListAvailable(t *testing.T) {
	f := setupTestLedger(t)
	ctx := context.Background()
	a := NewAvailability(f.ledger, f.catalog)

	pets := &catalog.Resource{TenantID: f.tenant.ID, Name: "Garden", PriceMinor: 12000, IsActive: true, PetAllowed: true}
	retired := &catalog.Resource{TenantID: f.tenant.ID, Name: "Annex", PriceMinor: 8000, IsActive: false}
	require.NoError(t, f.catalog.CreateResource(ctx, pets))
	require.NoError(t, f.catalog.CreateResource(ctx, retired))

	f.succeed(t, "pi_busy", "2025-07-10", "2025-07-15")

	w := NewWindow(day("2025-07-12"), day("2025-07-13"))
	free, err := a.ListAvailable(ctx, f.tenant.ID, w, catalog.CapabilityFilter{})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, pets.ID, free[0].ID)

	later := NewWindow(day("2025-07-15"), day("2025-07-16"))
	free, err = a.ListAvailable(ctx, f.tenant.ID, later, catalog.CapabilityFilter{})
	require.NoError(t, err)
	assert.Len(t, free, 2)

	no := false
	free, err = a.ListAvailable(ctx, f.tenant.ID, later, catalog.CapabilityFilter{PetAllowed: &no})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, f.resource.ID, free[0].ID)
}

func TestIsCurrentlyFree(t *testing.T) {
	f := setupTestLedger(t)
	ctx := context.Background()
	a := NewAvailability(f.ledger, f.catalog)

	f.succeed(t, "pi_stay", "2025-07-10", "2025-07-15")

	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	cases := []struct {
		name     string
		checkout string
		asOf     string
		free     bool
	}{
		{"check-in day occupies from midnight", "", "2025-07-10T06:00:00Z", false},
		{"mid-stay", "", "2025-07-12T12:00:00Z", false},
		{"checkout day without configured time", "", "2025-07-15T23:00:00Z", false},
		{"checkout day before checkout time", "11:00", "2025-07-15T10:59:00Z", false},
		{"checkout day after checkout time", "11:00", "2025-07-15T11:00:00Z", true},
		{"day before stay", "", "2025-07-09T23:59:00Z", true},
		{"day after checkout", "", "2025-07-16T00:00:00Z", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, f.db.Model(&catalog.Tenant{}).Where("id = ?", f.tenant.ID).Update("checkout_time", tc.checkout).Error)
			free, err := a.IsCurrentlyFree(ctx, f.resource.ID, at(tc.asOf))
			require.NoError(t, err)
			assert.Equal(t, tc.free, free)
		})
	}
}

func TestIsCurrentlyFree_UsesTenantTimezone(t *testing.T) {
	f := setupTestLedger(t)
	ctx := context.Background()
	a := NewAvailability(f.ledger, f.catalog)

	f.succeed(t, "pi_tz", "2025-07-10", "2025-07-15")
	require.NoError(t, f.db.Model(&catalog.Tenant{}).Where("id = ?", f.tenant.ID).
		Updates(map[string]any{"timezone": "Asia/Tokyo", "checkout_time": "10:00"}).Error)

	// 2025-07-14T23:30Z is 08:30 on 2025-07-15 in Tokyo: checkout day, before 10:00.
	free, err := a.IsCurrentlyFree(ctx, f.resource.ID, time.Date(2025, 7, 14, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, free)

	// 01:30Z is 10:30 local.
	free, err = a.IsCurrentlyFree(ctx, f.resource.ID, time.Date(2025, 7, 15, 1, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, free)
}
