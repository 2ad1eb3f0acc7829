package repository

import (
	"context"
	"errors"

	"referral-ledger-backend/internal/features/user/models"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser means the Telegram ID is already registered. Callers
	// resolve it by returning the existing record.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrDuplicateReferralCode means the generated code collided. Callers
	// regenerate the code and retry.
	ErrDuplicateReferralCode = errors.New("referral code already exists")

	// ErrPositionConflict means a concurrent registration took the same
	// position. The insert is retried; positions stay unique and gapless.
	ErrPositionConflict = errors.New("position already taken")
)

// UserRepository is the identity store. Create assigns the next position
// inside the insert statement itself, in the same transaction as the user
// row and its wallet, so concurrent registrations can never observe and
// commit the same position.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByRefCode(ctx context.Context, code string) (*models.User, error)
}

// WalletRepository is the wallet store. Credit is an atomic increment at the
// storage layer, never an application-level read-modify-write.
type WalletRepository interface {
	Ensure(ctx context.Context, userID int64) error
	Credit(ctx context.Context, userID int64, stars int64) (int64, error)
}
