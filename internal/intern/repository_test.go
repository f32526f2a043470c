package intern_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"intern-service/internal/intern"
	"intern-service/internal/metrics"
	"intern-service/testing/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Postgres(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, (*intern.Intern)(nil))

	repo := intern.NewRepository(pgContainer.DB, metrics.NewMock())
	ctx := context.Background()

	newIntern := func(name, code string) *intern.Intern {
		return &intern.Intern{
			Name:         name,
			Email:        name + "@example.com",
			PasswordHash: "hash",
			ReferralCode: code,
		}
	}

	t.Run("Create_SetsDefaultsAndRewards", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		in := newIntern("alice", "ALICE1")
		in.AmountRaised = 1200
		require.NoError(t, repo.Create(ctx, in))

		got, err := repo.GetByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, float64(intern.DefaultGoal), got.Goal)
		require.Len(t, got.Rewards, 3)
		assert.True(t, got.Rewards[0].Unlocked)
		assert.False(t, got.Rewards[1].Unlocked)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("Create_DuplicateEmail", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		require.NoError(t, repo.Create(ctx, newIntern("bob", "BOB001")))
		dup := newIntern("bob", "BOB002")

		err := repo.Create(ctx, dup)

		assert.ErrorIs(t, err, intern.ErrEmailExists)
	})

	t.Run("Create_DuplicateReferralCode", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		require.NoError(t, repo.Create(ctx, newIntern("carol", "SAME01")))

		err := repo.Create(ctx, newIntern("dave", "SAME01"))

		assert.ErrorIs(t, err, intern.ErrReferralCodeTaken)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		_, err := repo.GetByID(ctx, uuid.New())

		assert.ErrorIs(t, err, intern.ErrInternNotFound)
	})

	t.Run("CreditReferral_Concurrent", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		referrer := newIntern("eve", "EVE001")
		require.NoError(t, repo.Create(ctx, referrer))

		const n = 10
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.CreditReferral(ctx, "EVE001", uuid.New(), 500)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.ReferralsCount)
		assert.Equal(t, float64(n*500), got.AmountRaised)
		assert.True(t, got.Rewards[2].Unlocked)
	})

	t.Run("CreditReferral_ExcludesSelf", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		self := newIntern("frank", "FRANK1")
		require.NoError(t, repo.Create(ctx, self))

		_, err := repo.CreditReferral(ctx, "FRANK1", self.ID, 500)

		assert.ErrorIs(t, err, intern.ErrInternNotFound)
	})

	t.Run("SetAmount_UpdatesRewards", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		in := newIntern("grace", "GRACE1")
		require.NoError(t, repo.Create(ctx, in))

		updated, err := repo.SetAmount(ctx, in.ID, 3000)
		require.NoError(t, err)
		assert.True(t, updated.Rewards[1].Unlocked)

		got, err := repo.GetByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, 3000.0, got.AmountRaised)
		assert.True(t, got.Rewards[1].Unlocked)
		assert.False(t, got.Rewards[2].Unlocked)
	})

	t.Run("AddAmount_NeverNegative", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		in := newIntern("heidi", "HEIDI1")
		require.NoError(t, repo.Create(ctx, in))

		_, err := repo.AddAmount(ctx, in.ID, -1)

		assert.ErrorIs(t, err, intern.ErrInvalidInput)
	})

	t.Run("Standings_AndDelete", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		ids := make([]uuid.UUID, 0, 3)
		for i, amount := range []float64{100, 500, 300} {
			in := newIntern(fmt.Sprintf("s%d", i), fmt.Sprintf("STAND%d", i))
			in.AmountRaised = amount
			require.NoError(t, repo.Create(ctx, in))
			ids = append(ids, in.ID)
		}

		entries, err := repo.Standings(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 3)

		require.NoError(t, repo.Delete(ctx, ids[1]))
		assert.ErrorIs(t, repo.Delete(ctx, ids[1]), intern.ErrInternNotFound)

		entries, err = repo.Standings(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		for _, e := range entries {
			assert.NotEqual(t, ids[1], e.ID)
		}
	})

	t.Run("List_NewestFirst", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "interns")

		require.NoError(t, repo.Create(ctx, newIntern("old", "OLD001")))
		require.NoError(t, repo.Create(ctx, newIntern("new", "NEW001")))

		interns, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, interns, 2)
		assert.Equal(t, "new", interns[0].Name)
	})
}
