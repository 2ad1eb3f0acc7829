package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"referral-ledger-backend/internal/features/dashboard/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.DashboardRepository {
	return &postgresRepository{db: db}
}

// GetStats runs all four reads in one repeatable-read transaction. Under
// READ COMMITTED each statement would get its own snapshot and a credit batch
// committing mid-read could mix two instants; REPEATABLE READ pins a single
// snapshot for the whole transaction.
func (r *postgresRepository) GetStats(ctx context.Context, telegramID int64) (*repository.Stats, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats := &repository.Stats{}

	err = tx.QueryRowContext(ctx,
		`SELECT position, ref_code FROM users WHERE tg_id = $1`, telegramID).
		Scan(&stats.Position, &stats.RefCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Downline counts everyone who joined after this user, not just direct
	// referrals.
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE position > $1`, stats.Position).
		Scan(&stats.DownlineCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count downline: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_paise), 0) FROM ledger WHERE user_id = $1`, telegramID).
		Scan(&stats.TotalEarnedPaise)
	if err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(stars, 0) FROM wallets WHERE user_id = $1`, telegramID).
		Scan(&stats.StarBalance)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get wallet balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stats, nil
}
