package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral-ledger-backend/internal/common/cache"
	"referral-ledger-backend/internal/features/dashboard/models"
	"referral-ledger-backend/internal/features/dashboard/repository"
)

var ErrUserNotFound = errors.New("user not found")

// SnapshotCache is the read-through slice of the cache service the dashboard
// uses. A nil cache disables caching without changing behavior.
type SnapshotCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error
}

type DashboardService interface {
	GetSnapshot(ctx context.Context, telegramID int64) (*models.Snapshot, error)
}

type dashboardService struct {
	repo        repository.DashboardRepository
	cache       SnapshotCache
	ttl         time.Duration
	botUsername string
}

func NewDashboardService(repo repository.DashboardRepository, snapshotCache SnapshotCache, ttl time.Duration, botUsername string) DashboardService {
	return &dashboardService{
		repo:        repo,
		cache:       snapshotCache,
		ttl:         ttl,
		botUsername: botUsername,
	}
}

// GetSnapshot serves the cached snapshot when fresh, otherwise rebuilds it
// from a single consistent read. Reward writers invalidate the key on
// commit, so a cached value is at most ttl old and never mixes states.
func (s *dashboardService) GetSnapshot(ctx context.Context, telegramID int64) (*models.Snapshot, error) {
	if s.cache == nil {
		return s.build(ctx, telegramID)
	}

	var snapshot models.Snapshot
	err := s.cache.GetOrSet(ctx, cache.SnapshotKey(telegramID), &snapshot, s.ttl, func() (interface{}, error) {
		return s.build(ctx, telegramID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &snapshot, nil
}

func (s *dashboardService) build(ctx context.Context, telegramID int64) (*models.Snapshot, error) {
	stats, err := s.repo.GetStats(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &models.Snapshot{
		Position:         stats.Position,
		DownlineCount:    stats.DownlineCount,
		TotalEarnedPaise: stats.TotalEarnedPaise,
		StarBalance:      stats.StarBalance,
		RefCode:          stats.RefCode,
		ReferralLink:     fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, stats.RefCode),
	}, nil
}
