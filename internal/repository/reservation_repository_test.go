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

func TestReservationRepository_CreateDuplicate(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewReservationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	student := testutil.CreateUser(t, pool, model.RoleStudent)
	ticket := testutil.CreateTicket(t, pool, student.ID, 5, now.Add(24*time.Hour))
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 5)

	var first *model.Reservation
	withCommit(t, pool, func(tx pgx.Tx) {
		var err error
		first, err = repo.Create(ctx, tx, &model.Reservation{
			UserID: student.ID, ScheduleID: schedule.ID, TicketID: ticket.ID, ReservedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusReserved, first.Status)
	})

	withTx(t, pool, func(tx pgx.Tx) {
		exists, err := repo.ExistsActive(ctx, tx, student.ID, schedule.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = repo.Create(ctx, tx, &model.Reservation{
			UserID: student.ID, ScheduleID: schedule.ID, TicketID: ticket.ID, ReservedAt: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrDuplicateReservation)
	})

	// 取消後可以重新預約
	withCommit(t, pool, func(tx pgx.Tx) {
		cancelled, err := repo.UpdateStatus(ctx, tx, first.ID, model.ReservationStatusCancelled, now)
		require.NoError(t, err)
		require.NotNil(t, cancelled.CancelledAt)

		_, err = repo.Create(ctx, tx, &model.Reservation{
			UserID: student.ID, ScheduleID: schedule.ID, TicketID: ticket.ID, ReservedAt: now,
		})
		require.NoError(t, err)
	})
}

func TestReservationRepository_UpdateStatus(t *testing.T) {
	pool := setupTestWithTruncate(t)
	repo := repository.NewReservationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	instructor := testutil.CreateUser(t, pool, model.RoleInstructor)
	student := testutil.CreateUser(t, pool, model.RoleStudent)
	ticket := testutil.CreateTicket(t, pool, student.ID, 5, now.Add(24*time.Hour))
	schedule := testutil.CreateSchedule(t, pool, instructor.ID, now.Add(48*time.Hour), 5)

	var reservation *model.Reservation
	withCommit(t, pool, func(tx pgx.Tx) {
		var err error
		reservation, err = repo.Create(ctx, tx, &model.Reservation{
			UserID: student.ID, ScheduleID: schedule.ID, TicketID: ticket.ID, ReservedAt: now,
		})
		require.NoError(t, err)

		attended, err := repo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusAttended, now)
		require.NoError(t, err)
		assert.Nil(t, attended.CancelledAt)
	})

	withTx(t, pool, func(tx pgx.Tx) {
		_, err := repo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusCancelled, now)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)

		_, err = repo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusAbsent, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	list, err := repo.ListByUser(ctx, student.ID, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Schedule)
	assert.Equal(t, schedule.ID, list[0].Schedule.ID)

	status := string(model.ReservationStatusAttended)
	filtered, err := repo.List(ctx, model.ReservationFilter{ScheduleID: &schedule.ID, Status: status})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	bySchedule, err := repo.ListBySchedules(ctx, []int{schedule.ID})
	require.NoError(t, err)
	assert.Len(t, bySchedule, 1)
}
