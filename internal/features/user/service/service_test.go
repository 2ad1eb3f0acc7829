package service

import (
	"context"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	referralservice "referral-ledger-backend/internal/features/referral/service"
	"referral-ledger-backend/internal/features/user/models"
	"referral-ledger-backend/internal/features/user/repository"
)

// fakeUserRepo mimics the unique constraints of the real store: Telegram ID,
// referral code and position each reject duplicates with the matching
// sentinel. forcedErrs lets a test inject conflicts for the first N creates.
type fakeUserRepo struct {
	byID       map[int64]*models.User
	byCode     map[string]*models.User
	nextPos    int64
	forcedErrs []error
	creates    int
	preCreate  func(r *fakeUserRepo)
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[int64]*models.User),
		byCode: make(map[string]*models.User),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.creates++
	if r.preCreate != nil {
		r.preCreate(r)
	}
	if len(r.forcedErrs) > 0 {
		err := r.forcedErrs[0]
		r.forcedErrs = r.forcedErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := r.byID[user.TelegramID]; ok {
		return repository.ErrDuplicateUser
	}
	if _, ok := r.byCode[user.RefCode]; ok {
		return repository.ErrDuplicateReferralCode
	}
	r.nextPos++
	user.Position = r.nextPos
	r.byID[user.TelegramID] = user
	r.byCode[user.RefCode] = user
	return nil
}

func (r *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	if u, ok := r.byID[telegramID]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByRefCode(ctx context.Context, code string) (*models.User, error) {
	if u, ok := r.byCode[code]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func newService(repo repository.UserRepository) UserService {
	return NewUserService(repo, referralservice.NewReferralResolver(repo))
}

func TestRegisterAssignsSequentialPositions(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		result, err := svc.Register(ctx, 1000+i, "", "")
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.Equal(t, i, result.User.Position)
		assert.NotEmpty(t, result.User.RefCode)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	first, err := svc.Register(ctx, 42, "alice", "")
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.Register(ctx, 42, "alice", "")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.Position, second.User.Position)
	assert.Equal(t, first.User.RefCode, second.User.RefCode)
}

func TestRegisterWithSponsor(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	sponsor, err := svc.Register(ctx, 1, "", "")
	require.NoError(t, err)

	result, err := svc.Register(ctx, 2, "", sponsor.User.RefCode)
	require.NoError(t, err)
	require.NotNil(t, result.User.InvitedBy)
	assert.Equal(t, int64(1), *result.User.InvitedBy)
}

func TestRegisterIgnoresUnknownReferralCode(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)

	result, err := svc.Register(context.Background(), 7, "", "bogus-code")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Nil(t, result.User.InvitedBy)
}

func TestRegisterIgnoresOwnReferralCode(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	first, err := svc.Register(ctx, 9, "", "")
	require.NoError(t, err)

	// Re-registering through one's own code must not create a self-link.
	result, err := svc.Register(ctx, 9, "", first.User.RefCode)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Nil(t, result.User.InvitedBy)
}

func TestRegisterRetriesOnPositionConflict(t *testing.T) {
	repo := newFakeUserRepo()
	repo.forcedErrs = []error{repository.ErrPositionConflict, repository.ErrPositionConflict}
	svc := newService(repo)

	result, err := svc.Register(context.Background(), 11, "", "")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 3, repo.creates)
}

func TestRegisterRetriesOnCodeCollision(t *testing.T) {
	repo := newFakeUserRepo()
	repo.forcedErrs = []error{repository.ErrDuplicateReferralCode}
	svc := newService(repo)

	result, err := svc.Register(context.Background(), 12, "", "")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 2, repo.creates)
}

func TestRegisterLosesRaceToConcurrentRegistration(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	// The other registration lands between our existence check and insert.
	winner := &models.User{TelegramID: 13, RefCode: "winner", Position: 1}
	repo.preCreate = func(r *fakeUserRepo) {
		r.byID[13] = winner
		r.byCode["winner"] = winner
		r.preCreate = nil
	}

	result, err := svc.Register(ctx, 13, "", "")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "winner", result.User.RefCode)
}

func TestRegisterGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newFakeUserRepo()
	for i := 0; i < maxCreateAttempts; i++ {
		repo.forcedErrs = append(repo.forcedErrs, repository.ErrPositionConflict)
	}
	svc := newService(repo)

	_, err := svc.Register(context.Background(), 14, "", "")
	require.Error(t, err)
	assert.Equal(t, maxCreateAttempts, repo.creates)
}

// racyUserRepo mimics the real store's optimistic position assignment: the
// candidate position is read outside the critical section, so concurrent
// creates genuinely collide and surface ErrPositionConflict, exactly like two
// inserts racing for the same MAX(position)+1.
type racyUserRepo struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	byCode    map[string]*models.User
	positions map[int64]bool
	maxPos    int64
}

func newRacyUserRepo() *racyUserRepo {
	return &racyUserRepo{
		byID:      make(map[int64]*models.User),
		byCode:    make(map[string]*models.User),
		positions: make(map[int64]bool),
	}
}

func (r *racyUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	candidate := r.maxPos + 1
	r.mu.Unlock()

	runtime.Gosched()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.TelegramID]; ok {
		return repository.ErrDuplicateUser
	}
	if _, ok := r.byCode[user.RefCode]; ok {
		return repository.ErrDuplicateReferralCode
	}
	if r.positions[candidate] {
		return repository.ErrPositionConflict
	}
	user.Position = candidate
	r.positions[candidate] = true
	if candidate > r.maxPos {
		r.maxPos = candidate
	}
	r.byID[user.TelegramID] = user
	r.byCode[user.RefCode] = user
	return nil
}

func (r *racyUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[telegramID]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *racyUserRepo) GetByRefCode(ctx context.Context, code string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byCode[code]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func TestConcurrentRegistrationsFillPositionsGaplessly(t *testing.T) {
	repo := newRacyUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	// Every position conflict implies another registration committed, so with
	// N registrants a single attempt can fail at most N-1 times. N equal to
	// the retry budget keeps the test deterministic.
	const registrants = maxCreateAttempts

	var wg sync.WaitGroup
	results := make([]*models.RegistrationResult, registrants)
	errs := make([]error, registrants)
	for i := 0; i < registrants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Register(ctx, int64(1000+i), "", "")
		}(i)
	}
	wg.Wait()

	taken := make(map[int64]bool)
	for i := 0; i < registrants; i++ {
		require.NoError(t, errs[i])
		require.True(t, results[i].Created)
		pos := results[i].User.Position
		assert.False(t, taken[pos], "position %d assigned twice", pos)
		taken[pos] = true
	}

	// Gapless and duplicate-free: exactly {1..N}.
	for p := int64(1); p <= registrants; p++ {
		assert.True(t, taken[p], "position %d never assigned", p)
	}
}

func TestGetUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, 21, "bob", "")
	require.NoError(t, err)

	user, err := svc.GetUser(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, created.User.RefCode, user.RefCode)

	_, err = svc.GetUser(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
