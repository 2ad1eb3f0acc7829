package service

import (
	"context"
	"errors"
	"fmt"

	"referral-ledger-backend/internal/common/logger"
	referralservice "referral-ledger-backend/internal/features/referral/service"
	"referral-ledger-backend/internal/features/user/models"
	"referral-ledger-backend/internal/features/user/repository"
	"referral-ledger-backend/internal/utils/random"
)

var ErrUserNotFound = errors.New("user not found")

// maxCreateAttempts bounds the retry loop for position and referral-code
// conflicts. Position conflicts are expected under concurrent registration;
// code collisions are practically impossible but still retryable.
const maxCreateAttempts = 5

type UserService interface {
	// Register is idempotent: a repeated call with the same Telegram ID
	// returns the existing user with Created=false and changes nothing.
	Register(ctx context.Context, telegramID int64, username, referralCode string) (*models.RegistrationResult, error)
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
}

type userService struct {
	repo     repository.UserRepository
	resolver referralservice.ReferralResolver
}

func NewUserService(repo repository.UserRepository, resolver referralservice.ReferralResolver) UserService {
	return &userService{
		repo:     repo,
		resolver: resolver,
	}
}

func (s *userService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Register(ctx context.Context, telegramID int64, username, referralCode string) (*models.RegistrationResult, error) {
	if existing, err := s.repo.GetByTelegramID(ctx, telegramID); err == nil {
		return &models.RegistrationResult{User: existing, Created: false}, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	// A bad or unknown referral code never fails registration.
	var invitedBy *int64
	sponsor, err := s.resolver.ResolveSponsor(ctx, referralCode, telegramID)
	if err != nil {
		return nil, err
	}
	if sponsor != nil {
		invitedBy = &sponsor.TelegramID
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := random.Code()
		if err != nil {
			return nil, err
		}

		user := &models.User{
			TelegramID: telegramID,
			Username:   username,
			RefCode:    code,
			InvitedBy:  invitedBy,
		}

		err = s.repo.Create(ctx, user)
		switch {
		case err == nil:
			logger.Info().
				Int64("telegram_id", telegramID).
				Int64("position", user.Position).
				Bool("has_sponsor", invitedBy != nil).
				Msg("User registered")
			return &models.RegistrationResult{User: user, Created: true}, nil

		case errors.Is(err, repository.ErrDuplicateUser):
			// Lost the race to a concurrent registration of the same ID.
			existing, getErr := s.repo.GetByTelegramID(ctx, telegramID)
			if getErr != nil {
				return nil, getErr
			}
			return &models.RegistrationResult{User: existing, Created: false}, nil

		case errors.Is(err, repository.ErrDuplicateReferralCode),
			errors.Is(err, repository.ErrPositionConflict):
			logger.Debug().
				Err(err).
				Int64("telegram_id", telegramID).
				Int("attempt", attempt).
				Msg("Registration conflict, retrying")
			continue

		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("registration failed after %d attempts for user %d", maxCreateAttempts, telegramID)
}
