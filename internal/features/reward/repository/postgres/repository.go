package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"referral-ledger-backend/internal/features/reward/models"
	"referral-ledger-backend/internal/features/reward/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.LedgerRepository {
	return &postgresRepository{db: db}
}

const appendQuery = `
	INSERT INTO ledger (user_id, amount_paise, source, depth)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
`

// Append inserts one ledger entry.
func (r *postgresRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	err := r.db.QueryRowContext(ctx, appendQuery,
		entry.UserID, entry.AmountPaise, entry.Source, nullableDepth(entry.Depth)).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ApplyBatch writes every ledger row, wallet increment and pro extension of
// the batch in a single transaction. Wallet increments use an upsert so the
// addition happens inside the database, never as a read-modify-write.
func (r *postgresRepository) ApplyBatch(ctx context.Context, batch *models.CreditBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Entries {
		entry := &batch.Entries[i]
		err := tx.QueryRowContext(ctx, appendQuery,
			entry.UserID, entry.AmountPaise, entry.Source, nullableDepth(entry.Depth)).
			Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
	}

	for _, credit := range batch.Stars {
		query := `
			INSERT INTO wallets (user_id, stars)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET stars = wallets.stars + EXCLUDED.stars
		`
		if _, err := tx.ExecContext(ctx, query, credit.UserID, credit.Stars); err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}
	}

	if ext := batch.ProExtension; ext != nil {
		query := `
			UPDATE users
			SET pro_until = GREATEST(COALESCE(pro_until, NOW()), NOW()) + make_interval(days => $2)
			WHERE tg_id = $1
		`
		if _, err := tx.ExecContext(ctx, query, ext.UserID, ext.Days); err != nil {
			return fmt.Errorf("failed to extend pro: %w", err)
		}
	}

	return tx.Commit()
}

// SumByUser aggregates the user's total earned amount.
func (r *postgresRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_paise), 0) FROM ledger WHERE user_id = $1`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return total, nil
}

func nullableDepth(depth *int) sql.NullInt64 {
	if depth == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*depth), Valid: true}
}
