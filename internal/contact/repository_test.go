package contact_test

import (
	"context"
	"testing"
	"time"

	"intern-service/internal/contact"
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

	pgContainer.RunMigrations(t, (*intern.Intern)(nil), (*contact.Contact)(nil))

	mockMetrics := metrics.NewMock()
	repo := contact.NewRepository(pgContainer.DB, mockMetrics)
	internRepo := intern.NewRepository(pgContainer.DB, mockMetrics)
	ctx := context.Background()

	t.Run("ListWithUsers_ResolvesSender", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "contacts", "interns")

		sender := &intern.Intern{Name: "Sender", Email: "sender@example.com", PasswordHash: "hash", ReferralCode: "SEND01"}
		require.NoError(t, internRepo.Create(ctx, sender))

		older := &contact.Contact{Name: "Anon", Email: "anon@example.com", Message: "first", Date: time.Now().Add(-time.Hour)}
		require.NoError(t, repo.Create(ctx, older))
		newer := &contact.Contact{Name: "Sender", Email: "sender@example.com", Message: "second", UserID: &sender.ID}
		require.NoError(t, repo.Create(ctx, newer))

		list, err := repo.ListWithUsers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)

		assert.Equal(t, "second", list[0].Message)
		require.NotNil(t, list[0].User)
		assert.Equal(t, "Sender", list[0].User.Name)
		assert.Equal(t, "sender@example.com", list[0].User.Email)

		assert.Equal(t, "first", list[1].Message)
		assert.Nil(t, list[1].User)
	})

	t.Run("ListWithUsers_DeletedSender", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "contacts", "interns")

		sender := &intern.Intern{Name: "Gone", Email: "gone@example.com", PasswordHash: "hash", ReferralCode: "GONE01"}
		require.NoError(t, internRepo.Create(ctx, sender))
		require.NoError(t, repo.Create(ctx, &contact.Contact{Name: "Gone", Email: "gone@example.com", Message: "bye", UserID: &sender.ID}))
		require.NoError(t, internRepo.Delete(ctx, sender.ID))

		list, err := repo.ListWithUsers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].UserID)
		assert.Equal(t, sender.ID, *list[0].UserID)
		assert.Nil(t, list[0].User)
	})

	t.Run("Delete", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "contacts")

		c := &contact.Contact{Name: "x", Email: "x@example.com", Message: "m"}
		require.NoError(t, repo.Create(ctx, c))

		require.NoError(t, repo.Delete(ctx, c.ID))
		assert.ErrorIs(t, repo.Delete(ctx, c.ID), contact.ErrContactNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), contact.ErrContactNotFound)
	})
}
