package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"referral-ledger-backend/internal/features/user/repository"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

// Ensure idempotently creates a zero-balance wallet. Concurrent calls leave
// exactly one row; "already existed" and "just created" are indistinguishable
// to the caller.
func (r *walletRepository) Ensure(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO wallets (user_id, stars)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return nil
}

// Credit atomically adds stars to the wallet and returns the new balance.
// The increment happens in the database, so concurrent credits to the same
// user never lose updates.
func (r *walletRepository) Credit(ctx context.Context, userID int64, stars int64) (int64, error) {
	query := `
		INSERT INTO wallets (user_id, stars)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET stars = wallets.stars + EXCLUDED.stars
		RETURNING stars
	`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, userID, stars).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return balance, nil
}
