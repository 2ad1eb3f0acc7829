package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usermodels "referral-ledger-backend/internal/features/user/models"
	userrepo "referral-ledger-backend/internal/features/user/repository"
)

type fakeUserRepo struct {
	byID   map[int64]*usermodels.User
	byCode map[string]*usermodels.User
}

func newFakeUserRepo(users ...*usermodels.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		byID:   make(map[int64]*usermodels.User),
		byCode: make(map[string]*usermodels.User),
	}
	for _, u := range users {
		repo.byID[u.TelegramID] = u
		repo.byCode[u.RefCode] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *usermodels.User) error {
	r.byID[user.TelegramID] = user
	r.byCode[user.RefCode] = user
	return nil
}

func (r *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*usermodels.User, error) {
	if u, ok := r.byID[telegramID]; ok {
		return u, nil
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) GetByRefCode(ctx context.Context, code string) (*usermodels.User, error) {
	if u, ok := r.byCode[code]; ok {
		return u, nil
	}
	return nil, userrepo.ErrUserNotFound
}

func ptr(v int64) *int64 { return &v }

// chainOfThree builds A <- B <- C: A sponsored B, B sponsored C.
func chainOfThree() (*usermodels.User, *usermodels.User, *usermodels.User) {
	a := &usermodels.User{TelegramID: 100, RefCode: "code-a", Position: 1}
	b := &usermodels.User{TelegramID: 200, RefCode: "code-b", Position: 2, InvitedBy: ptr(100)}
	c := &usermodels.User{TelegramID: 300, RefCode: "code-c", Position: 3, InvitedBy: ptr(200)}
	return a, b, c
}

func TestResolveSponsor(t *testing.T) {
	a, b, c := chainOfThree()
	resolver := NewReferralResolver(newFakeUserRepo(a, b, c))
	ctx := context.Background()

	t.Run("known code", func(t *testing.T) {
		sponsor, err := resolver.ResolveSponsor(ctx, "code-a", 999)
		require.NoError(t, err)
		require.NotNil(t, sponsor)
		assert.Equal(t, int64(100), sponsor.TelegramID)
	})

	t.Run("empty code resolves to no sponsor", func(t *testing.T) {
		sponsor, err := resolver.ResolveSponsor(ctx, "", 999)
		require.NoError(t, err)
		assert.Nil(t, sponsor)
	})

	t.Run("unknown code resolves to no sponsor", func(t *testing.T) {
		sponsor, err := resolver.ResolveSponsor(ctx, "no-such-code", 999)
		require.NoError(t, err)
		assert.Nil(t, sponsor)
	})

	t.Run("own code resolves to no sponsor", func(t *testing.T) {
		sponsor, err := resolver.ResolveSponsor(ctx, "code-a", 100)
		require.NoError(t, err)
		assert.Nil(t, sponsor)
	})
}

func TestWalkChain(t *testing.T) {
	a, b, c := chainOfThree()
	resolver := NewReferralResolver(newFakeUserRepo(a, b, c))
	ctx := context.Background()

	t.Run("full chain in depth order", func(t *testing.T) {
		chain, err := resolver.WalkChain(ctx, 300, 10)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, int64(200), chain[0].User.TelegramID)
		assert.Equal(t, 1, chain[0].Depth)
		assert.Equal(t, int64(100), chain[1].User.TelegramID)
		assert.Equal(t, 2, chain[1].Depth)
	})

	t.Run("no sponsor yields empty chain", func(t *testing.T) {
		chain, err := resolver.WalkChain(ctx, 100, 10)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("depth limit caps the walk", func(t *testing.T) {
		chain, err := resolver.WalkChain(ctx, 300, 1)
		require.NoError(t, err)
		require.Len(t, chain, 1)
		assert.Equal(t, int64(200), chain[0].User.TelegramID)
	})

	t.Run("dangling sponsor link stops the walk", func(t *testing.T) {
		orphan := &usermodels.User{TelegramID: 400, RefCode: "code-d", Position: 4, InvitedBy: ptr(999)}
		r := NewReferralResolver(newFakeUserRepo(orphan))

		chain, err := r.WalkChain(ctx, 400, 10)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("self loop stops the walk", func(t *testing.T) {
		loop := &usermodels.User{TelegramID: 500, RefCode: "code-e", Position: 5, InvitedBy: ptr(500)}
		r := NewReferralResolver(newFakeUserRepo(loop))

		chain, err := r.WalkChain(ctx, 500, 10)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("unknown start user fails", func(t *testing.T) {
		_, err := resolver.WalkChain(ctx, 12345, 10)
		require.Error(t, err)
	})
}
