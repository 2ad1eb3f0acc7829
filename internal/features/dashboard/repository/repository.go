package repository

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Stats is the raw per-user aggregate, read in one consistent view.
type Stats struct {
	Position         int64
	RefCode          string
	DownlineCount    int64
	TotalEarnedPaise int64
	StarBalance      int64
}

type DashboardRepository interface {
	// GetStats reads every snapshot component within a single read-only
	// transaction.
	GetStats(ctx context.Context, telegramID int64) (*Stats, error)
}
