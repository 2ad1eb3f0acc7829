package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"referral-ledger-backend/internal/features/user/models"
	"referral-ledger-backend/internal/features/user/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

// Create inserts the user and its zero-balance wallet in one transaction.
// The position is taken by the insert itself; the UNIQUE constraint on
// position turns a concurrent assignment into ErrPositionConflict, which the
// registration service retries.
func (r *postgresRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (tg_id, username, ref_code, invited_by, position)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position), 0) + 1 FROM users))
		RETURNING id, position, created_at
	`

	var invitedBy sql.NullInt64
	if user.InvitedBy != nil {
		invitedBy = sql.NullInt64{Int64: *user.InvitedBy, Valid: true}
	}

	err = tx.QueryRowContext(ctx, query,
		user.TelegramID, user.Username, user.RefCode, invitedBy).
		Scan(&user.ID, &user.Position, &user.CreatedAt)
	if err != nil {
		return translateUniqueViolation(err)
	}

	walletQuery := `
		INSERT INTO wallets (user_id, stars)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, walletQuery, user.TelegramID); err != nil {
		return fmt.Errorf("failed to initialize wallet: %w", err)
	}

	return tx.Commit()
}

// GetByTelegramID looks up a user by Telegram ID.
func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "tg_id = $1", telegramID)
}

// GetByRefCode looks up a user by referral code.
func (r *postgresRepository) GetByRefCode(ctx context.Context, code string) (*models.User, error) {
	return r.getOne(ctx, "ref_code = $1", code)
}

func (r *postgresRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, tg_id, username, ref_code, invited_by, position, pro_until, created_at
		FROM users
		WHERE %s
	`, where)

	var user models.User
	var invitedBy sql.NullInt64
	var proUntil sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.RefCode,
		&invitedBy, &user.Position, &proUntil, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if invitedBy.Valid {
		user.InvitedBy = &invitedBy.Int64
	}
	if proUntil.Valid {
		user.ProUntil = &proUntil.Time
	}

	return &user, nil
}

// translateUniqueViolation maps a 23505 to the sentinel matching the violated
// constraint so the service can pick the right retry strategy.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return fmt.Errorf("failed to create user: %w", err)
	}

	switch pqErr.Constraint {
	case "users_tg_id_key":
		return repository.ErrDuplicateUser
	case "users_ref_code_key":
		return repository.ErrDuplicateReferralCode
	case "users_position_key":
		return repository.ErrPositionConflict
	default:
		return fmt.Errorf("failed to create user: %w", err)
	}
}
