package repository

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/internal/database"
	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository interface {
	FindByID(ctx context.Context, id int) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Reservation, error)
	List(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error)
	ListBySchedules(ctx context.Context, scheduleIDs []int) ([]*model.Reservation, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error)
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Reservation, error)
	ExistsActive(ctx context.Context, tx pgx.Tx, userID int, scheduleID int) (bool, error)
	ListReservedWithLock(ctx context.Context, tx pgx.Tx, scheduleID int) ([]*model.Reservation, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, to model.ReservationStatus, now time.Time) (*model.Reservation, error)
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

const reservationColumns = `id, user_id, schedule_id, ticket_id, status,
	reserved_at, cancelled_at, created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ScheduleID,
		&reservation.TicketID,
		&reservation.Status,
		&reservation.ReservedAt,
		&reservation.CancelledAt,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func collectReservations(rows pgx.Rows) ([]*model.Reservation, error) {
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error) {
	if reservation.Status == "" {
		reservation.Status = model.ReservationStatusReserved
	}

	query := `
		INSERT INTO reservations (user_id, schedule_id, ticket_id, status, reserved_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reservationColumns

	created, err := scanReservation(tx.QueryRow(ctx, query,
		reservation.UserID, reservation.ScheduleID, reservation.TicketID,
		reservation.Status, reservation.ReservedAt,
	))
	if err != nil {
		// 部分唯一索引擋下同一使用者重複預約
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateReservation
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	return created, nil
}

func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return scanReservation(r.pool.QueryRow(ctx, query, id))
}

func (r *ReservationRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return scanReservation(tx.QueryRow(ctx, query, id))
}

func (r *ReservationRepositoryImpl) ExistsActive(ctx context.Context, tx pgx.Tx, userID int, scheduleID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND schedule_id = $2 AND status = 'reserved'
		)
	`

	var exists bool
	if err := tx.QueryRow(ctx, query, userID, scheduleID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByUser 附帶時段資訊，依開課時間新到舊
func (r *ReservationRepositoryImpl) ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Reservation, error) {
	query := `
		SELECT r.id, r.user_id, r.schedule_id, r.ticket_id, r.status,
			r.reserved_at, r.cancelled_at, r.created_at, r.updated_at,
			s.id, s.lesson_id, s.instructor_id, s.start_at, s.end_at,
			s.capacity, s.reservation_count, s.status, s.created_at, s.updated_at
		FROM reservations r
		JOIN schedules s ON s.id = r.schedule_id
		WHERE r.user_id = $1
		ORDER BY s.start_at DESC, r.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		var reservation model.Reservation
		var schedule model.Schedule
		err := rows.Scan(
			&reservation.ID,
			&reservation.UserID,
			&reservation.ScheduleID,
			&reservation.TicketID,
			&reservation.Status,
			&reservation.ReservedAt,
			&reservation.CancelledAt,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
			&schedule.ID,
			&schedule.LessonID,
			&schedule.InstructorID,
			&schedule.StartAt,
			&schedule.EndAt,
			&schedule.Capacity,
			&schedule.ReservationCount,
			&schedule.Status,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reservation.Schedule = &schedule
		reservations = append(reservations, &reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *ReservationRepositoryImpl) List(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	var where whereBuilder

	if filter.ScheduleID != nil {
		where.add("schedule_id = $%d", *filter.ScheduleID)
	}
	if status := model.ReservationStatus(filter.Status); status.IsValid() {
		where.add("status = $%d", status)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		%s
		ORDER BY id DESC
		LIMIT %s OFFSET %s
	`, reservationColumns, where.clause(), where.next(filter.Limit()), where.next(filter.Offset()))

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ListBySchedules 講師課表用，排除已取消的預約
func (r *ReservationRepositoryImpl) ListBySchedules(ctx context.Context, scheduleIDs []int) ([]*model.Reservation, error) {
	if len(scheduleIDs) == 0 {
		return []*model.Reservation{}, nil
	}

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE schedule_id = ANY($1) AND status <> 'cancelled'
		ORDER BY schedule_id ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, scheduleIDs)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *ReservationRepositoryImpl) ListReservedWithLock(ctx context.Context, tx pgx.Tx, scheduleID int) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE schedule_id = $1 AND status = 'reserved'
		ORDER BY id ASC
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// UpdateStatus 只允許從 reserved 轉出，cancelled 會一併寫入 cancelled_at
func (r *ReservationRepositoryImpl) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	id int,
	to model.ReservationStatus,
	now time.Time,
) (*model.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = $1,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN $2 ELSE cancelled_at END,
			updated_at = $2
		WHERE id = $3 AND status = 'reserved'
		RETURNING ` + reservationColumns

	reservation, err := scanReservation(tx.QueryRow(ctx, query, to, now, id))
	if errors.Is(err, apperrors.ErrReservationNotFound) {
		if to == model.ReservationStatusCancelled {
			return nil, apperrors.ErrAlreadyCancelled
		}
		return nil, apperrors.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}
	return reservation, nil
}
