package repository

import (
	"context"

	"referral-ledger-backend/internal/features/reward/models"
)

// LedgerRepository is the append-only ledger store. Rows are never updated
// or deleted; no such statement exists in any implementation.
type LedgerRepository interface {
	// Append inserts one immutable entry and fills its ID and CreatedAt.
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// ApplyBatch commits a whole credit batch in one transaction.
	ApplyBatch(ctx context.Context, batch *models.CreditBatch) error

	// SumByUser returns the user's total earned amount, 0 if no rows.
	SumByUser(ctx context.Context, userID int64) (int64, error)
}
