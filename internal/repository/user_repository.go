package repository

import (
	"context"
	"errors"
	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.User, error)
	ApplyPenalty(ctx context.Context, tx pgx.Tx, id int, now time.Time, until time.Time) (*model.User, error)
}

type UserRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &UserRepositoryImpl{
		pool: pool,
	}
}

const userColumns = `id, name, email, role, penalty_point, suspended_until, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PenaltyPoint,
		&user.SuspendedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user.Role == "" {
		user.Role = model.RoleStudent
	}

	query := `
		INSERT INTO users (name, email, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, user.Name, user.Email, user.Role))
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(tx.QueryRow(ctx, query, id))
}

// ApplyPenalty 點數 +1，達門檻時停權到 until；已有更晚的停權期限則保留
func (r *UserRepositoryImpl) ApplyPenalty(ctx context.Context, tx pgx.Tx, id int, now time.Time, until time.Time) (*model.User, error) {
	query := `
		UPDATE users
		SET penalty_point = penalty_point + 1,
			suspended_until = CASE
				WHEN penalty_point + 1 >= $1
					THEN GREATEST(COALESCE(suspended_until, $2), $3)
				ELSE suspended_until
			END,
			updated_at = $2
		WHERE id = $4
		RETURNING ` + userColumns

	return scanUser(tx.QueryRow(ctx, query, model.PenaltyThreshold, now, until, id))
}
