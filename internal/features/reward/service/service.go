package service

import (
	"context"

	"referral-ledger-backend/internal/common/cache"
	"referral-ledger-backend/internal/common/config"
	apperrors "referral-ledger-backend/internal/common/errors"
	"referral-ledger-backend/internal/common/logger"
	referralservice "referral-ledger-backend/internal/features/referral/service"
	"referral-ledger-backend/internal/features/reward/models"
	"referral-ledger-backend/internal/features/reward/repository"
	userrepo "referral-ledger-backend/internal/features/user/repository"
)

// Signup reward types.
const (
	RewardTypePoints = "points"
	RewardTypePaise  = "paise"
)

const proExtensionDays = 30

// SnapshotCache is the slice of the cache service the engine needs to drop
// stale dashboard snapshots after a commit.
type SnapshotCache interface {
	Delete(ctx context.Context, keys ...string) error
}

type RewardEngine interface {
	// Apply computes and commits every credit a triggering event produces.
	// The whole credit set commits atomically; a failed event credits nobody.
	Apply(ctx context.Context, event models.RewardEvent) error
}

type rewardEngine struct {
	cfg      config.RewardsConfig
	ledger   repository.LedgerRepository
	wallets  userrepo.WalletRepository
	resolver referralservice.ReferralResolver
	cache    SnapshotCache
}

func NewRewardEngine(
	cfg config.RewardsConfig,
	ledger repository.LedgerRepository,
	wallets userrepo.WalletRepository,
	resolver referralservice.ReferralResolver,
	snapshotCache SnapshotCache,
) RewardEngine {
	return &rewardEngine{
		cfg:      cfg,
		ledger:   ledger,
		wallets:  wallets,
		resolver: resolver,
		cache:    snapshotCache,
	}
}

func (e *rewardEngine) Apply(ctx context.Context, event models.RewardEvent) error {
	switch event.Kind {
	case models.EventSignup:
		return e.applySignup(ctx, event)
	case models.EventTaskVerified:
		return e.applyTaskVerified(ctx, event)
	case models.EventPurchase, models.EventProUpgrade:
		return e.applyPurchase(ctx, event)
	default:
		err := apperrors.NewInvalidEventKindError(string(event.Kind)).WithUserID(event.TelegramID)
		logger.Error().
			Str("event_kind", string(event.Kind)).
			Int64("user_id", event.TelegramID).
			Msg("Reward event dropped: unknown kind")
		return err
	}
}

// applySignup credits the new user's whole sponsor chain, one ledger entry
// per level up to the depth limit. The reward type decides whether each
// level is mirrored into the ancestor's wallet or recorded in the ledger
// only.
func (e *rewardEngine) applySignup(ctx context.Context, event models.RewardEvent) error {
	chain, err := e.resolver.WalkChain(ctx, event.TelegramID, e.cfg.DepthLimit)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		logger.Debug().Int64("user_id", event.TelegramID).Msg("Signup without sponsor chain, nothing to credit")
		return nil
	}

	batch := &models.CreditBatch{}

	switch e.cfg.SignupRewardType {
	case RewardTypePoints:
		for _, link := range chain {
			depth := link.Depth
			batch.Entries = append(batch.Entries, models.LedgerEntry{
				UserID:      link.User.TelegramID,
				AmountPaise: e.cfg.LevelBonus,
				Source:      models.SourceReferralCommission,
				Depth:       &depth,
			})
			batch.Stars = append(batch.Stars, models.StarCredit{
				UserID: link.User.TelegramID,
				Stars:  e.cfg.LevelBonus,
			})
		}

	case RewardTypePaise:
		// The flat platform fee is split across the ancestors actually
		// credited; the remainder goes to the direct sponsor so one signup
		// never mints more than the fee.
		share := e.cfg.PlatformFeePaise / int64(len(chain))
		remainder := e.cfg.PlatformFeePaise % int64(len(chain))
		for _, link := range chain {
			depth := link.Depth
			amount := share
			if depth == 1 {
				amount += remainder
			}
			batch.Entries = append(batch.Entries, models.LedgerEntry{
				UserID:      link.User.TelegramID,
				AmountPaise: amount,
				Source:      models.SourceReferralCommission,
				Depth:       &depth,
			})
		}

	default:
		err := apperrors.NewUnsupportedRewardPolicyError(e.cfg.SignupRewardType)
		logger.Error().
			Str("reward_type", e.cfg.SignupRewardType).
			Int64("user_id", event.TelegramID).
			Msg("Reward event dropped: unsupported signup reward type")
		return err
	}

	if err := e.ledger.ApplyBatch(ctx, batch); err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", event.TelegramID).
		Int("levels", len(chain)).
		Str("reward_type", e.cfg.SignupRewardType).
		Msg("Signup rewards credited")

	e.invalidateSnapshots(ctx, batch.UserIDs())
	return nil
}

// applyTaskVerified credits the acting user's own wallet. No chain walk.
func (e *rewardEngine) applyTaskVerified(ctx context.Context, event models.RewardEvent) error {
	if err := e.wallets.Ensure(ctx, event.TelegramID); err != nil {
		return err
	}

	balance, err := e.wallets.Credit(ctx, event.TelegramID, e.cfg.ReferralStars)
	if err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", event.TelegramID).
		Int64("stars", e.cfg.ReferralStars).
		Int64("balance", balance).
		Msg("Task reward credited")

	e.invalidateSnapshots(ctx, []int64{event.TelegramID})
	return nil
}

// applyPurchase credits the direct sponsor a commission derived from the
// purchase amount. Pro upgrades additionally extend the buyer's pro expiry
// in the same transaction.
func (e *rewardEngine) applyPurchase(ctx context.Context, event models.RewardEvent) error {
	amount := event.AmountPaise
	if event.Kind == models.EventProUpgrade && amount == 0 {
		amount = e.cfg.ProPricePaise
	}
	if amount <= 0 {
		return apperrors.New(apperrors.ErrCodeValidation, "purchase amount must be positive").
			WithUserID(event.TelegramID)
	}

	chain, err := e.resolver.WalkChain(ctx, event.TelegramID, 1)
	if err != nil {
		return err
	}

	batch := &models.CreditBatch{}

	if len(chain) > 0 {
		depth := 1
		batch.Entries = append(batch.Entries, models.LedgerEntry{
			UserID:      chain[0].User.TelegramID,
			AmountPaise: amount * e.cfg.PurchaseCommissionPercent / 100,
			Source:      models.SourcePurchase,
			Depth:       &depth,
		})
	}

	if event.Kind == models.EventProUpgrade {
		batch.ProExtension = &models.ProExtension{
			UserID: event.TelegramID,
			Days:   proExtensionDays,
		}
	}

	if len(batch.Entries) == 0 && batch.ProExtension == nil {
		logger.Debug().Int64("user_id", event.TelegramID).Msg("Purchase without sponsor, nothing to credit")
		return nil
	}

	if err := e.ledger.ApplyBatch(ctx, batch); err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", event.TelegramID).
		Str("event_kind", string(event.Kind)).
		Int64("amount_paise", amount).
		Bool("commission_paid", len(batch.Entries) > 0).
		Msg("Purchase rewards applied")

	e.invalidateSnapshots(ctx, batch.UserIDs())
	return nil
}

// invalidateSnapshots is best-effort: a stale snapshot expires with its TTL
// anyway.
func (e *rewardEngine) invalidateSnapshots(ctx context.Context, userIDs []int64) {
	if e.cache == nil || len(userIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.SnapshotKey(id))
	}

	if err := e.cache.Delete(ctx, keys...); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate snapshot cache")
	}
}
