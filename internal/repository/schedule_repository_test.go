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

func TestScheduleRepository_TryReserveSlot(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 2)

	for i := 1; i <= 2; i++ {
		withCommit(t, pool, func(tx pgx.Tx) {
			updated, err := repo.TryReserveSlot(ctx, tx, schedule.ID, now)
			require.NoError(t, err)
			assert.Equal(t, i, updated.ReservationCount)
		})
	}

	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.TryReserveSlot(ctx, tx, schedule.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrScheduleFull)
	})

	withCommit(t, pool, func(tx pgx.Tx) {
		updated, err := repo.ReleaseSlot(ctx, tx, schedule.ID, now)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.ReservationCount)
	})
}

func TestScheduleRepository_ReleaseSlotNeverNegative(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 2)

	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.ReleaseSlot(ctx, tx, schedule.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestScheduleRepository_UpdateStatus(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(time.Hour), 5)

	withCommit(t, pool, func(tx pgx.Tx) {
		updated, err := repo.UpdateStatus(ctx, tx, schedule.ID,
			model.ScheduleStatusUpcoming, model.ScheduleStatusInProgress, now)
		require.NoError(t, err)
		assert.Equal(t, model.ScheduleStatusInProgress, updated.Status)
	})

	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.UpdateStatus(ctx, tx, schedule.ID,
			model.ScheduleStatusUpcoming, model.ScheduleStatusCancelled, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})
}

func TestScheduleRepository_List(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()

	day := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	testutil.CreateSchedule(t, pool, instructor.ID, day.Add(9*time.Hour), 1)
	testutil.CreateSchedule(t, pool, instructor.ID, day.Add(14*time.Hour), 3)
	testutil.CreateSchedule(t, pool, instructor.ID, day.AddDate(0, 0, 1).Add(9*time.Hour), 3)

	onDay, err := repo.List(ctx, model.ScheduleFilter{Date: day})
	require.NoError(t, err)
	require.Len(t, onDay, 2)
	assert.True(t, onDay[0].StartAt.Before(onDay[1].StartAt))

	ranged, err := repo.List(ctx, model.ScheduleFilter{From: day, To: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	full := false
	noneFull, err := repo.List(ctx, model.ScheduleFilter{Available: &full})
	require.NoError(t, err)
	assert.Len(t, noneFull, 0)

	mine, err := repo.ListByInstructor(ctx, instructor.ID, day)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestScheduleRepository_Delete(t *testing.T) {
	pool := setupTestWithTruncate(t)
	scheduleRepo := repository.NewScheduleRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	student := testutil.CreateUser(t, pool, model.RoleStudent)
	ticket := testutil.CreateTicket(t, pool, student.ID, 1, now.Add(24*time.Hour))
	empty := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 5)
	booked := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(72*time.Hour), 5)

	withCommit(t, pool, func(tx pgx.Tx) {
		_, err := reservationRepo.Create(ctx, tx, &model.Reservation{
			UserID: student.ID, ScheduleID: booked.ID, TicketID: ticket.ID, ReservedAt: now,
		})
		require.NoError(t, err)
	})

	withCommit(t, pool, func(tx pgx.Tx) {
		require.NoError(t, scheduleRepo.Delete(ctx, tx, empty.ID))
	})
	_, err := scheduleRepo.FindByID(ctx, empty.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	withTx(t, pool, func(tx pgx.Tx) {
		err := scheduleRepo.Delete(ctx, tx, booked.ID)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestScheduleRepository_VersionFollowsCommitOrder(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 5)

	var first, second, third *model.Schedule
	withCommit(t, pool, func(tx pgx.Tx) {
		var err error
		first, err = repo.TryReserveSlot(ctx, tx, schedule.ID, now.Add(time.Hour))
		require.NoError(t, err)
	})

	// 後 commit 的交易拿到較早的 now，版本仍須往前
	withCommit(t, pool, func(tx pgx.Tx) {
		var err error
		second, err = repo.TryReserveSlot(ctx, tx, schedule.ID, now)
		require.NoError(t, err)
	})

	withCommit(t, pool, func(tx pgx.Tx) {
		var err error
		third, err = repo.ReleaseSlot(ctx, tx, schedule.ID, now.Add(time.Hour))
		require.NoError(t, err)
	})

	assert.Equal(t, now.Add(time.Hour).UnixMicro(), first.Version())
	assert.Greater(t, second.Version(), first.Version())
	assert.Equal(t, 2, second.ReservationCount)
	assert.Greater(t, third.Version(), second.Version())
	assert.Equal(t, 1, third.ReservationCount)
}

func TestScheduleRepository_Update(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewScheduleRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	other := testutil.CreateUser(t, pool, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 5)

	for i := 0; i < 3; i++ {
		withCommit(t, pool, func(tx pgx.Tx) {
			_, err := repo.TryReserveSlot(ctx, tx, schedule.ID, now)
			require.NoError(t, err)
		})
	}

	edit := *schedule
	edit.InstructorID = other.ID
	edit.StartAt = now.Add(72 * time.Hour).Truncate(time.Microsecond)
	edit.EndAt = edit.StartAt.Add(time.Hour)
	edit.Capacity = 3

	withCommit(t, pool, func(tx pgx.Tx) {
		updated, err := repo.Update(ctx, tx, &edit, now)
		require.NoError(t, err)
		assert.Equal(t, other.ID, updated.InstructorID)
		assert.True(t, edit.StartAt.Equal(updated.StartAt))
		assert.Equal(t, 3, updated.Capacity)
		assert.Equal(t, 3, updated.ReservationCount)
		assert.True(t, updated.IsFull())
	})

	edit.Capacity = 2
	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.Update(ctx, tx, &edit, now)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	withCommit(t, pool, func(tx pgx.Tx) {
		_, err := repo.UpdateStatus(ctx, tx, schedule.ID,
			model.ScheduleStatusUpcoming, model.ScheduleStatusCancelled, now)
		require.NoError(t, err)
	})

	edit.Capacity = 10
	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.Update(ctx, tx, &edit, now)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}
