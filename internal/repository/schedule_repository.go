package repository

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error)
	FindByID(ctx context.Context, id int) (*model.Schedule, error)
	List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error)
	ListByInstructor(ctx context.Context, instructorID int, from time.Time) ([]*model.Schedule, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Schedule, error)
	TryReserveSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error)
	ReleaseSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, from, to model.ScheduleStatus, now time.Time) (*model.Schedule, error)
	Update(ctx context.Context, tx pgx.Tx, schedule *model.Schedule, now time.Time) (*model.Schedule, error)
	Delete(ctx context.Context, tx pgx.Tx, id int) error
}

type ScheduleRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) ScheduleRepository {
	return &ScheduleRepositoryImpl{
		pool: pool,
	}
}

// nextVersion updated_at 兼作快取版本，必須隨 commit 順序嚴格遞增
const nextVersion = `GREATEST(updated_at + interval '1 microsecond', $1)`

const scheduleColumns = `id, lesson_id, instructor_id, start_at, end_at,
	capacity, reservation_count, status, created_at, updated_at`

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	var schedule model.Schedule
	err := row.Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func collectSchedules(rows pgx.Rows) ([]*model.Schedule, error) {
	defer rows.Close()

	schedules := make([]*model.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepositoryImpl) Create(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error) {
	if schedule.Status == "" {
		schedule.Status = model.ScheduleStatusUpcoming
	}

	query := `
		INSERT INTO schedules (lesson_id, instructor_id, start_at, end_at, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + scheduleColumns

	created, err := scanSchedule(r.pool.QueryRow(ctx, query,
		schedule.LessonID, schedule.InstructorID, schedule.StartAt,
		schedule.EndAt, schedule.Capacity, schedule.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return created, nil
}

func (r *ScheduleRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return scanSchedule(r.pool.QueryRow(ctx, query, id))
}

func (r *ScheduleRepositoryImpl) List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error) {
	var where whereBuilder

	if filter.LessonID != nil {
		where.add("lesson_id = $%d", *filter.LessonID)
	}
	if !filter.Date.IsZero() {
		where.add("start_at >= $%d", filter.Date)
		where.add("start_at < $%d", filter.Date.AddDate(0, 0, 1))
	}
	if !filter.From.IsZero() {
		where.add("start_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("start_at < $%d", filter.To.AddDate(0, 0, 1))
	}
	if status := model.ScheduleStatus(filter.Status); status.IsValid() {
		where.add("status = $%d", status)
	}
	if filter.Available != nil {
		if *filter.Available {
			where.addRaw("reservation_count < capacity")
		} else {
			where.addRaw("reservation_count >= capacity")
		}
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM schedules
		%s
		ORDER BY start_at ASC, id ASC
		LIMIT %s OFFSET %s
	`, scheduleColumns, where.clause(), where.next(filter.Limit()), where.next(filter.Offset()))

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *ScheduleRepositoryImpl) ListByInstructor(ctx context.Context, instructorID int, from time.Time) ([]*model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE instructor_id = $1 AND end_at >= $2 AND status <> 'cancelled'
		ORDER BY start_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, instructorID, from)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *ScheduleRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
	return scanSchedule(tx.QueryRow(ctx, query, id))
}

// TryReserveSlot 原子性地佔一個位子，滿了就回 ErrScheduleFull
func (r *ScheduleRepositoryImpl) TryReserveSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error) {
	query := `
		UPDATE schedules
		SET reservation_count = reservation_count + 1, updated_at = ` + nextVersion + `
		WHERE id = $2 AND reservation_count < capacity
		RETURNING ` + scheduleColumns

	schedule, err := scanSchedule(tx.QueryRow(ctx, query, now, id))
	if errors.Is(err, apperrors.ErrScheduleNotFound) {
		return nil, apperrors.ErrScheduleFull
	}
	return schedule, err
}

func (r *ScheduleRepositoryImpl) ReleaseSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error) {
	query := `
		UPDATE schedules
		SET reservation_count = reservation_count - 1, updated_at = ` + nextVersion + `
		WHERE id = $2 AND reservation_count > 0
		RETURNING ` + scheduleColumns

	schedule, err := scanSchedule(tx.QueryRow(ctx, query, now, id))
	if errors.Is(err, apperrors.ErrScheduleNotFound) {
		return nil, fmt.Errorf("release slot on schedule %d: %w", id, apperrors.ErrConflict)
	}
	return schedule, err
}

// UpdateStatus 只有目前狀態等於 from 才會更新
func (r *ScheduleRepositoryImpl) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	id int,
	from, to model.ScheduleStatus,
	now time.Time,
) (*model.Schedule, error) {
	query := `
		UPDATE schedules
		SET status = $2, updated_at = ` + nextVersion + `
		WHERE id = $3 AND status = $4
		RETURNING ` + scheduleColumns

	schedule, err := scanSchedule(tx.QueryRow(ctx, query, now, to, id, from))
	if errors.Is(err, apperrors.ErrScheduleNotFound) {
		return nil, apperrors.ErrInvalidTransition
	}
	return schedule, err
}

// Update 只改 upcoming 的時段，容量不得低於已預約人數
func (r *ScheduleRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, schedule *model.Schedule, now time.Time) (*model.Schedule, error) {
	query := `
		UPDATE schedules
		SET lesson_id = $2, instructor_id = $3, start_at = $4, end_at = $5, capacity = $6,
			updated_at = ` + nextVersion + `
		WHERE id = $7 AND status = 'upcoming' AND reservation_count <= $6
		RETURNING ` + scheduleColumns

	updated, err := scanSchedule(tx.QueryRow(ctx, query, now,
		schedule.LessonID, schedule.InstructorID, schedule.StartAt,
		schedule.EndAt, schedule.Capacity, schedule.ID,
	))
	if errors.Is(err, apperrors.ErrScheduleNotFound) {
		return nil, fmt.Errorf("update schedule %d: %w", schedule.ID, apperrors.ErrConflict)
	}
	return updated, err
}

// Delete 有任何預約紀錄就拒絕
func (r *ScheduleRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, id int) error {
	query := `
		DELETE FROM schedules
		WHERE id = $1
			AND reservation_count = 0
			AND NOT EXISTS (SELECT 1 FROM reservations WHERE schedule_id = $1)
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule %d has reservations: %w", id, apperrors.ErrConflict)
	}

	return nil
}
