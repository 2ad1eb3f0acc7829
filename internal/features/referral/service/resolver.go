package service

import (
	"context"
	"errors"
	"fmt"

	usermodels "referral-ledger-backend/internal/features/user/models"
	userrepo "referral-ledger-backend/internal/features/user/repository"
)

// ChainEntry is one ancestor in a sponsor chain. Depth 1 is the direct
// sponsor, depth 2 the sponsor's sponsor, and so on.
type ChainEntry struct {
	User  *usermodels.User
	Depth int
}

type ReferralResolver interface {
	ResolveSponsor(ctx context.Context, code string, registrantID int64) (*usermodels.User, error)
	WalkChain(ctx context.Context, telegramID int64, maxDepth int) ([]ChainEntry, error)
}

type referralResolver struct {
	users userrepo.UserRepository
}

func NewReferralResolver(users userrepo.UserRepository) ReferralResolver {
	return &referralResolver{users: users}
}

// ResolveSponsor finds the sponsor behind a referral code. An empty or
// unknown code resolves to no sponsor without error; a code that points back
// at the registrant is treated the same way.
func (r *referralResolver) ResolveSponsor(ctx context.Context, code string, registrantID int64) (*usermodels.User, error) {
	if code == "" {
		return nil, nil
	}

	sponsor, err := r.users.GetByRefCode(ctx, code)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve sponsor: %w", err)
	}

	if sponsor.TelegramID == registrantID {
		return nil, nil
	}

	return sponsor, nil
}

// WalkChain follows sponsor links upward from the user, stopping at maxDepth
// or when no further sponsor exists. Sponsor links are acyclic by
// construction, but the walk never relies on that: iteration is hard-capped
// by maxDepth regardless of what the links say.
func (r *referralResolver) WalkChain(ctx context.Context, telegramID int64, maxDepth int) ([]ChainEntry, error) {
	current, err := r.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain start: %w", err)
	}

	var chain []ChainEntry
	for depth := 1; depth <= maxDepth; depth++ {
		if current.InvitedBy == nil {
			break
		}

		sponsor, err := r.users.GetByTelegramID(ctx, *current.InvitedBy)
		if err != nil {
			if errors.Is(err, userrepo.ErrUserNotFound) {
				// dangling link, stop the walk
				break
			}
			return nil, fmt.Errorf("failed to walk chain at depth %d: %w", depth, err)
		}

		if sponsor.TelegramID == current.TelegramID {
			break
		}

		chain = append(chain, ChainEntry{User: sponsor, Depth: depth})
		current = sponsor
	}

	return chain, nil
}
