package intern_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"intern-service/internal/events"
	"intern-service/internal/intern"
	"intern-service/internal/leaderboard"
	"intern-service/internal/metrics"
	"intern-service/internal/referral"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *memRepository
	publisher *recordingPublisher
	board     *countingInvalidator
	service   intern.Service
}

func newFixture(gen referral.Generator) *fixture {
	if gen == nil {
		gen = referral.NewCodeGenerator()
	}
	f := &fixture{
		repo:      newMemRepository(),
		publisher: &recordingPublisher{},
		board:     &countingInvalidator{},
	}
	f.service = intern.NewService(f.repo, gen, f.publisher, f.board, metrics.NewMock(), discardLogger(), intern.Options{})
	return f
}

func signup(t *testing.T, svc intern.Service, name, code string) *intern.Intern {
	t.Helper()
	created, err := svc.Signup(context.Background(), intern.SignupInput{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		ReferralCode: code,
	})
	require.NoError(t, err)
	return created
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("NewInternDefaults", func(t *testing.T) {
		f := newFixture(nil)

		created := signup(t, f.service, "alice", "")

		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.True(t, referral.Valid(created.ReferralCode))
		assert.Equal(t, 0.0, created.AmountRaised)
		assert.Equal(t, float64(intern.DefaultGoal), created.Goal)
		assert.Equal(t, 0, created.ReferralsCount)
		assert.Empty(t, created.ReferredBy)
		require.Len(t, created.Rewards, 3)
		for _, r := range created.Rewards {
			assert.False(t, r.Unlocked)
		}
		assert.Equal(t, []events.Type{events.InternSignedUp}, f.publisher.types())
		assert.Equal(t, 1, f.board.count)
	})

	t.Run("CodesAreUnique", func(t *testing.T) {
		f := newFixture(nil)
		seen := map[string]bool{}

		for i := 0; i < 50; i++ {
			created := signup(t, f.service, fmt.Sprintf("intern%d", i), "")
			assert.False(t, seen[created.ReferralCode], "duplicate code %s", created.ReferralCode)
			seen[created.ReferralCode] = true
		}
	})

	t.Run("RetriesOnCodeCollision", func(t *testing.T) {
		f := newFixture(&sequenceGenerator{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}})

		first := signup(t, f.service, "first", "")
		second := signup(t, f.service, "second", "")

		assert.Equal(t, "AAAAAA", first.ReferralCode)
		assert.Equal(t, "BBBBBB", second.ReferralCode)
	})

	t.Run("GivesUpAfterMaxAttempts", func(t *testing.T) {
		f := newFixture(&sequenceGenerator{codes: []string{"CCCCCC"}})
		signup(t, f.service, "first", "")

		_, err := f.service.Signup(ctx, intern.SignupInput{Name: "second", Email: "second@example.com", PasswordHash: "hash"})

		assert.ErrorIs(t, err, intern.ErrReferralCodeExhausted)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newFixture(nil)
		signup(t, f.service, "bob", "")

		_, err := f.service.Signup(ctx, intern.SignupInput{Name: "Bob Again", Email: "BOB@example.com", PasswordHash: "hash"})

		assert.ErrorIs(t, err, intern.ErrEmailExists)
	})

	t.Run("MissingFields", func(t *testing.T) {
		f := newFixture(nil)

		_, err := f.service.Signup(ctx, intern.SignupInput{Name: " ", Email: "x@example.com", PasswordHash: "hash"})

		assert.ErrorIs(t, err, intern.ErrInvalidInput)
	})

	t.Run("StoreErrorFailsSignup", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.failOn = errors.New("connection refused")

		_, err := f.service.Signup(ctx, intern.SignupInput{Name: "x", Email: "x@example.com", PasswordHash: "hash"})

		assert.Error(t, err)
	})
}

func TestService_ReferralAttribution(t *testing.T) {
	ctx := context.Background()

	t.Run("CreditsReferrer", func(t *testing.T) {
		f := newFixture(nil)
		referrer := signup(t, f.service, "referrer", "")

		referee := signup(t, f.service, "referee", referrer.ReferralCode)

		got, err := f.service.GetByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, 500.0, got.AmountRaised)
		assert.Equal(t, 1, got.ReferralsCount)
		for _, r := range got.Rewards {
			assert.False(t, r.Unlocked, "500 unlocks nothing")
		}

		assert.Equal(t, 0.0, referee.AmountRaised)
		assert.Equal(t, referrer.ReferralCode, referee.ReferredBy)
		assert.Contains(t, f.publisher.types(), events.ReferralCredited)
	})

	t.Run("LowercaseCodeIsNormalized", func(t *testing.T) {
		f := newFixture(&sequenceGenerator{codes: []string{"ABC123", "XYZ789"}})
		referrer := signup(t, f.service, "referrer", "")

		signup(t, f.service, "referee", " abc123 ")

		got, err := f.service.GetByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReferralsCount)
	})

	t.Run("UnknownCodeIsIgnored", func(t *testing.T) {
		f := newFixture(nil)
		existing := signup(t, f.service, "existing", "")

		referee := signup(t, f.service, "referee", "NOPE00")

		got, err := f.service.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.AmountRaised)
		assert.Equal(t, 0, got.ReferralsCount)
		assert.Equal(t, "NOPE00", referee.ReferredBy)
		assert.NotContains(t, f.publisher.types(), events.ReferralCredited)
	})

	t.Run("MalformedCodeSkipsStore", func(t *testing.T) {
		f := newFixture(nil)
		existing := signup(t, f.service, "existing", "")

		for _, code := range []string{"AB12", "ABC-123", "TOOLONG1"} {
			referee := signup(t, f.service, "referee"+code, code)
			assert.Equal(t, referral.Normalize(code), referee.ReferredBy)
		}

		assert.Equal(t, 0, f.repo.credits)
		got, err := f.service.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.ReferralsCount)
	})

	t.Run("SelfReferralIsIgnored", func(t *testing.T) {
		f := newFixture(&sequenceGenerator{codes: []string{"SELF01"}})

		created := signup(t, f.service, "self", "SELF01")

		got, err := f.service.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.AmountRaised)
		assert.Equal(t, 0, got.ReferralsCount)
	})

	t.Run("RewardsFollowCredits", func(t *testing.T) {
		f := newFixture(nil)
		referrer := signup(t, f.service, "star", "")

		for i := 0; i < 6; i++ {
			signup(t, f.service, fmt.Sprintf("friend%d", i), referrer.ReferralCode)
		}

		got, err := f.service.GetByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, 3000.0, got.AmountRaised)
		assert.Equal(t, 6, got.ReferralsCount)
		assert.True(t, got.Rewards[0].Unlocked)
		assert.True(t, got.Rewards[1].Unlocked)
		assert.False(t, got.Rewards[2].Unlocked)
	})

	t.Run("ConcurrentReferralsAllCount", func(t *testing.T) {
		f := newFixture(nil)
		referrer := signup(t, f.service, "popular", "")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := f.service.Signup(ctx, intern.SignupInput{
					Name:         fmt.Sprintf("fan%d", i),
					Email:        fmt.Sprintf("fan%d@example.com", i),
					PasswordHash: "hash",
					ReferralCode: referrer.ReferralCode,
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := f.service.GetByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, got.ReferralsCount)
		assert.Equal(t, 10000.0, got.AmountRaised)
	})
}

func TestService_Amounts(t *testing.T) {
	ctx := context.Background()

	t.Run("SimulateReferralAddsBonusOnly", func(t *testing.T) {
		f := newFixture(nil)
		created := signup(t, f.service, "demo", "")

		updated, err := f.service.SimulateReferral(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, 500.0, updated.AmountRaised)
		assert.Equal(t, 0, updated.ReferralsCount)
		assert.Contains(t, f.publisher.types(), events.InternAmountUpdated)
	})

	t.Run("SimulateReferralUnknownIntern", func(t *testing.T) {
		f := newFixture(nil)

		_, err := f.service.SimulateReferral(ctx, uuid.New())

		assert.ErrorIs(t, err, intern.ErrInternNotFound)
	})

	t.Run("SetAmountReevaluatesRewards", func(t *testing.T) {
		f := newFixture(nil)
		created := signup(t, f.service, "admin-managed", "")

		updated, err := f.service.SetAmount(ctx, created.ID, 5000)
		require.NoError(t, err)
		for _, r := range updated.Rewards {
			assert.True(t, r.Unlocked)
		}

		updated, err = f.service.SetAmount(ctx, created.ID, 999)
		require.NoError(t, err)
		for _, r := range updated.Rewards {
			assert.False(t, r.Unlocked)
		}
	})

	t.Run("SetAmountRejectsNegative", func(t *testing.T) {
		f := newFixture(nil)
		created := signup(t, f.service, "neg", "")

		_, err := f.service.SetAmount(ctx, created.ID, -1)

		assert.ErrorIs(t, err, intern.ErrInvalidInput)
	})

	t.Run("SetAmountUnknownIntern", func(t *testing.T) {
		f := newFixture(nil)

		_, err := f.service.SetAmount(ctx, uuid.New(), 100)

		assert.ErrorIs(t, err, intern.ErrInternNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesFromLeaderboard", func(t *testing.T) {
		f := newFixture(nil)
		keep := signup(t, f.service, "keep", "")
		gone := signup(t, f.service, "gone", "")
		_, err := f.service.SetAmount(ctx, gone.ID, 4000)
		require.NoError(t, err)

		board := leaderboard.NewService(f.repo, discardLogger(), metrics.NewMock())
		before, err := board.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, before, 2)
		assert.Equal(t, gone.ID, before[0].ID)

		require.NoError(t, f.service.Delete(ctx, gone.ID))

		after, err := board.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, keep.ID, after[0].ID)
		assert.Contains(t, f.publisher.types(), events.InternDeleted)
	})

	t.Run("UnknownIntern", func(t *testing.T) {
		f := newFixture(nil)

		err := f.service.Delete(ctx, uuid.New())

		assert.ErrorIs(t, err, intern.ErrInternNotFound)
	})
}
