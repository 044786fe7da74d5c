package testutil

import (
	"context"
	"fmt"
	"lesson-booking/config"
	"lesson-booking/internal/database"
	"lesson-booking/internal/model"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Setup 連線測試 DB 並套用 schema；連不上時回傳錯誤讓呼叫端 skip
func Setup() (*pgxpool.Pool, func(), error) {
	cfg := config.LoadTestConfig()

	testDB, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}

	if err := database.Migrate(context.Background(), testDB); err != nil {
		testDB.Close()
		return nil, nil, fmt.Errorf("failed to migrate test database: %v", err)
	}

	log.Println("Test database connected successfully")

	cleanup := func() {
		testDB.Close()
		log.Println("Test database closed")
	}

	return testDB, cleanup, nil
}

// SetupRedisOnly 僅初始化 Redis，用於只依賴 Redis 的測試（如 queue 整合測試）
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE reservations, tickets, schedules, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

var seq atomic.Int64

func CreateUser(t *testing.T, pool *pgxpool.Pool, role model.Role) *model.User {
	t.Helper()
	n := seq.Add(1)

	var user model.User
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (name, email, role)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, role, penalty_point, suspended_until, created_at, updated_at
	`, fmt.Sprintf("user-%d", n), fmt.Sprintf("user-%d@example.com", n), role).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role,
		&user.PenaltyPoint, &user.SuspendedUntil, &user.CreatedAt, &user.UpdatedAt,
	)
	require.NoError(t, err)
	return &user
}

func CreateSchedule(t *testing.T, pool *pgxpool.Pool, instructorID int, startAt time.Time, capacity int) *model.Schedule {
	t.Helper()

	var schedule model.Schedule
	err := pool.QueryRow(context.Background(), `
		INSERT INTO schedules (lesson_id, instructor_id, start_at, end_at, capacity)
		VALUES (1, $1, $2, $3, $4)
		RETURNING id, lesson_id, instructor_id, start_at, end_at, capacity,
			reservation_count, status, created_at, updated_at
	`, instructorID, startAt, startAt.Add(time.Hour), capacity).Scan(
		&schedule.ID, &schedule.LessonID, &schedule.InstructorID, &schedule.StartAt,
		&schedule.EndAt, &schedule.Capacity, &schedule.ReservationCount, &schedule.Status,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	require.NoError(t, err)
	return &schedule
}

func CreateTicket(t *testing.T, pool *pgxpool.Pool, userID int, remaining int, expiresAt time.Time) *model.Ticket {
	t.Helper()

	var ticket model.Ticket
	err := pool.QueryRow(context.Background(), `
		INSERT INTO tickets (user_id, plan, remaining_count, price_paid, purchased_at, expires_at)
		VALUES ($1, 'ten', $2, $3, $4, $5)
		RETURNING id, user_id, plan, remaining_count, price_paid,
			purchased_at, expires_at, created_at, updated_at
	`, userID, remaining, decimal.NewFromInt(25000), expiresAt.AddDate(0, -3, 0), expiresAt).Scan(
		&ticket.ID, &ticket.UserID, &ticket.Plan, &ticket.RemainingCount, &ticket.PricePaid,
		&ticket.PurchasedAt, &ticket.ExpiresAt, &ticket.CreatedAt, &ticket.UpdatedAt,
	)
	require.NoError(t, err)
	return &ticket
}

func TicketRemaining(t *testing.T, pool *pgxpool.Pool, ticketID int) int {
	t.Helper()
	var remaining int
	err := pool.QueryRow(context.Background(),
		`SELECT remaining_count FROM tickets WHERE id = $1`, ticketID).Scan(&remaining)
	require.NoError(t, err)
	return remaining
}

func ReservationCount(t *testing.T, pool *pgxpool.Pool, scheduleID int) (counter int, rows int) {
	t.Helper()
	err := pool.QueryRow(context.Background(), `
		SELECT s.reservation_count,
			(SELECT COUNT(*) FROM reservations r WHERE r.schedule_id = s.id AND r.status = 'reserved')
		FROM schedules s WHERE s.id = $1
	`, scheduleID).Scan(&counter, &rows)
	require.NoError(t, err)
	return counter, rows
}
