package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-ledger-backend/internal/features/dashboard/repository"
)

type fakeDashboardRepo struct {
	stats map[int64]*repository.Stats
	calls int
}

func (r *fakeDashboardRepo) GetStats(ctx context.Context, telegramID int64) (*repository.Stats, error) {
	r.calls++
	if s, ok := r.stats[telegramID]; ok {
		return s, nil
	}
	return nil, repository.ErrUserNotFound
}

// memoryCache is a map-backed stand-in for the Redis read-through cache.
type memoryCache struct {
	values map[string][]byte
	hits   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	if data, ok := c.values[key]; ok {
		c.hits++
		return json.Unmarshal(data, dest)
	}

	value, err := setter()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = data
	return json.Unmarshal(data, dest)
}

func TestGetSnapshot(t *testing.T) {
	repo := &fakeDashboardRepo{stats: map[int64]*repository.Stats{
		42: {
			Position:         3,
			RefCode:          "abc123",
			DownlineCount:    2,
			TotalEarnedPaise: 150,
			StarBalance:      25,
		},
	}}
	svc := NewDashboardService(repo, newMemoryCache(), 15*time.Second, "LedgerBot")

	snapshot, err := svc.GetSnapshot(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(3), snapshot.Position)
	assert.Equal(t, int64(2), snapshot.DownlineCount)
	assert.Equal(t, int64(150), snapshot.TotalEarnedPaise)
	assert.Equal(t, int64(25), snapshot.StarBalance)
	assert.Equal(t, "abc123", snapshot.RefCode)
	assert.Equal(t, "https://t.me/LedgerBot?start=abc123", snapshot.ReferralLink)
}

func TestGetSnapshotServesFromCache(t *testing.T) {
	repo := &fakeDashboardRepo{stats: map[int64]*repository.Stats{
		42: {Position: 1, RefCode: "abc"},
	}}
	cacheSvc := newMemoryCache()
	svc := NewDashboardService(repo, cacheSvc, 15*time.Second, "LedgerBot")
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, 42)
	require.NoError(t, err)

	second, err := svc.GetSnapshot(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls, "second read must not hit the store")
	assert.Equal(t, 1, cacheSvc.hits)
	assert.Equal(t, int64(1), second.Position)
}

func TestGetSnapshotWithoutCache(t *testing.T) {
	repo := &fakeDashboardRepo{stats: map[int64]*repository.Stats{
		42: {Position: 1, RefCode: "abc"},
	}}
	svc := NewDashboardService(repo, nil, 0, "LedgerBot")
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, 42)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls)
}

func TestGetSnapshotUnknownUser(t *testing.T) {
	repo := &fakeDashboardRepo{stats: map[int64]*repository.Stats{}}
	svc := NewDashboardService(repo, newMemoryCache(), 15*time.Second, "LedgerBot")

	_, err := svc.GetSnapshot(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
