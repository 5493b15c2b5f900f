package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }

	ok, err := g.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "k"))
	ok, _ = g.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok, "expired holds are reclaimed")
}

func TestMemoryGuard_EvictsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }

	for _, k := range []string{"notify:booking:1", "notify:booking:2", "notify:booking:3"} {
		ok, err := g.Acquire(ctx, k, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Len(t, g.held, 3)

	now = now.Add(2 * time.Minute)
	ok, err := g.Acquire(ctx, "notify:booking:4", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, g.held, 1, "expired keys are dropped")
	assert.Contains(t, g.held, "notify:booking:4")
}

func TestRedisGuard(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	g := NewRedisGuard(rdb, "sb:")

	mock.ExpectSetNX("sb:notify:booking:1", "1", time.Minute).SetVal(true)
	mock.ExpectSetNX("sb:notify:booking:1", "1", time.Minute).SetVal(false)
	mock.ExpectDel("sb:notify:booking:1").SetVal(1)
	mock.ExpectSetNX("sb:notify:booking:2", "1", time.Minute).SetErr(errors.New("connection refused"))

	ok, err := g.Acquire(ctx, "notify:booking:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "notify:booking:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "notify:booking:1"))

	_, err = g.Acquire(ctx, "notify:booking:2", time.Minute)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
