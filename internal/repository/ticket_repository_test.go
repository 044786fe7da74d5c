package repository_test

import (
	"context"
	"testing"
	"time"

	"lesson-booking/internal/model"
	"lesson-booking/internal/repository"
	"lesson-booking/internal/testutil"
	apperrors "lesson-booking/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository_Create(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewTicketRepository(pool)
	ctx := context.Background()

	user := testutil.CreateUser(t, pool, model.RoleStudent)
	now := time.Now().UTC().Truncate(time.Second)

	created, err := repo.Create(ctx, model.NewTicket(user.ID, model.TicketPlanFive, now, 3))

	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.TicketPlanFive, created.Plan)
	assert.Equal(t, 5, created.RemainingCount)
	assert.True(t, created.PricePaid.Equal(model.TicketPlanFive.Price()))
	assert.True(t, created.ExpiresAt.Equal(now.AddDate(0, 3, 0)))
}

func TestTicketRepository_SelectConsumableWithLock(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("EarliestExpiryFirst", func(t *testing.T) {
		pool := setupTestWithTruncate(t)
		repo := repository.NewTicketRepository(pool)
		user := testutil.CreateUser(t, pool, model.RoleStudent)

		testutil.CreateTicket(t, pool, user.ID, 3, now.Add(60*24*time.Hour))
		early := testutil.CreateTicket(t, pool, user.ID, 1, now.Add(10*24*time.Hour))
		testutil.CreateTicket(t, pool, user.ID, 0, now.Add(24*time.Hour))
		testutil.CreateTicket(t, pool, user.ID, 5, now.Add(-time.Hour))

		withTx(t, pool, func(tx pgx.Tx) {
			ticket, err := repo.SelectConsumableWithLock(ctx, tx, user.ID, now)
			require.NoError(t, err)
			assert.Equal(t, early.ID, ticket.ID)
		})
	})

	t.Run("TieBrokenByID", func(t *testing.T) {
		pool := setupTestWithTruncate(t)
		repo := repository.NewTicketRepository(pool)
		user := testutil.CreateUser(t, pool, model.RoleStudent)

		expires := now.Add(30 * 24 * time.Hour)
		first := testutil.CreateTicket(t, pool, user.ID, 1, expires)
		testutil.CreateTicket(t, pool, user.ID, 1, expires)

		withTx(t, pool, func(tx pgx.Tx) {
			ticket, err := repo.SelectConsumableWithLock(ctx, tx, user.ID, now)
			require.NoError(t, err)
			assert.Equal(t, first.ID, ticket.ID)
		})
	})

	t.Run("NoValidTicket", func(t *testing.T) {
		pool := setupTestWithTruncate(t)
		repo := repository.NewTicketRepository(pool)
		user := testutil.CreateUser(t, pool, model.RoleStudent)
		testutil.CreateTicket(t, pool, user.ID, 2, now.Add(-time.Minute))

		withTx(t, pool, func(tx pgx.Tx) {
			_, err := repo.SelectConsumableWithLock(ctx, tx, user.ID, now)
			assert.ErrorIs(t, err, apperrors.ErrNoValidTicket)
		})
	})
}

func TestTicketRepository_ConsumeAndRefund(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewTicketRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	user := testutil.CreateUser(t, pool, model.RoleStudent)
	ticket := testutil.CreateTicket(t, pool, user.ID, 1, now.Add(24*time.Hour))

	withCommit(t, pool, func(tx pgx.Tx) {
		require.NoError(t, repo.Consume(ctx, tx, ticket.ID, now))
	})
	assert.Equal(t, 0, testutil.TicketRemaining(t, pool, ticket.ID))

	withTx(t, pool, func(tx pgx.Tx) {
		err := repo.Consume(ctx, tx, ticket.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientTicket)
	})

	withCommit(t, pool, func(tx pgx.Tx) {
		require.NoError(t, repo.Refund(ctx, tx, ticket.ID, now))
	})
	assert.Equal(t, 1, testutil.TicketRemaining(t, pool, ticket.ID))

	withTx(t, pool, func(tx pgx.Tx) {
		err := repo.Refund(ctx, tx, 99999, now)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestTicketRepository_List(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewTicketRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := testutil.CreateUser(t, pool, model.RoleStudent)
	bob := testutil.CreateUser(t, pool, model.RoleStudent)
	testutil.CreateTicket(t, pool, alice.ID, 2, now.Add(24*time.Hour))
	testutil.CreateTicket(t, pool, alice.ID, 0, now.Add(24*time.Hour))
	testutil.CreateTicket(t, pool, bob.ID, 4, now.Add(-24*time.Hour))

	all, err := repo.List(ctx, model.TicketFilter{}, now)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	valid, err := repo.List(ctx, model.TicketFilter{ValidOnly: true}, now)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, alice.ID, valid[0].UserID)

	bobs, err := repo.List(ctx, model.TicketFilter{UserID: &bob.ID}, now)
	require.NoError(t, err)
	assert.Len(t, bobs, 1)

	mine, err := repo.ListByUser(ctx, alice.ID, model.Pagination{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
