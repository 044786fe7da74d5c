package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"lesson-booking/internal/cache"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/handler"
	"lesson-booking/internal/middleware"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	"lesson-booking/internal/service"
	"lesson-booking/internal/testutil"
	"lesson-booking/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "test-secret"

var (
	testDB  *pgxpool.Pool
	testRdb *redis.Client
)

func TestMain(m *testing.M) {
	db, cleanupDB, err := testutil.Setup()
	if err != nil {
		log.Printf("integration tests disabled: %v", err)
	}
	rdb, cleanupRedis, redisErr := testutil.SetupRedisOnly()
	if redisErr != nil {
		log.Printf("integration tests disabled: %v", redisErr)
	}
	if err == nil && redisErr == nil {
		testDB = db
		testRdb = rdb
	}

	code := m.Run()
	if cleanupDB != nil {
		cleanupDB()
	}
	if cleanupRedis != nil {
		cleanupRedis()
	}
	os.Exit(code)
}

type failingQueue struct{}

func (f *failingQueue) Publish(ctx context.Context, event *model.DomainEvent) error {
	return errors.New("queue publish failed")
}

func (f *failingQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	close(out)
	return out, nil
}

func setupIntegrationTest(t *testing.T, useFailingQueue bool) *gin.Engine {
	t.Helper()
	if testDB == nil || testRdb == nil {
		t.Skip("test database or redis not available")
	}
	ctx := context.Background()

	testutil.Truncate(t, testDB)
	require.NoError(t, testRdb.FlushDB(ctx).Err())

	clk := clock.Real()
	policy := service.DefaultPolicy()

	var eventQueue queue.EventQueue = queue.NewMemoryEventQueue(256)
	if useFailingQueue {
		eventQueue = &failingQueue{}
	}

	userRepo := repository.NewUserRepository(testDB)
	scheduleRepo := repository.NewScheduleRepository(testDB)
	ticketRepo := repository.NewTicketRepository(testDB)
	reservationRepo := repository.NewReservationRepository(testDB)

	capacity := service.NewScheduleCapacity(scheduleRepo, cache.NewScheduleAvailabilityCache(testRdb), clk)
	tickets := service.NewTicketService(ticketRepo, eventQueue, clk, policy)
	penalties := service.NewPenaltyLedger(userRepo, clk, policy)

	if !useFailingQueue {
		workerCtx, cancel := context.WithCancel(context.Background())
		eventWorker := worker.NewEventWorker(capacity, eventQueue)
		require.NoError(t, eventWorker.Start(workerCtx))
		t.Cleanup(func() {
			cancel()
			eventWorker.Wait()
		})
	}

	gin.SetMode(gin.TestMode)
	return handler.NewRouter(handler.Handlers{
		Reservations: handler.NewReservationHandler(service.NewReservationService(
			testDB, reservationRepo, scheduleRepo, userRepo, capacity, tickets, eventQueue, clk, policy)),
		Tickets: handler.NewTicketHandler(tickets),
		Schedules: handler.NewScheduleHandler(service.NewScheduleService(
			testDB, scheduleRepo, reservationRepo, userRepo, capacity, tickets, eventQueue, clk)),
		Instructor: handler.NewInstructorHandler(service.NewAttendanceService(
			testDB, scheduleRepo, reservationRepo, penalties, eventQueue, clk, policy)),
	}, jwtSecret, zap.NewNop())
}

func bearer(t *testing.T, user *model.User) string {
	t.Helper()
	claims := middleware.Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, router *gin.Engine, method, path string, body string, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", bearer(t, user))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func reserve(t *testing.T, router *gin.Engine, scheduleID int, user *model.User) *httptest.ResponseRecorder {
	return do(t, router, http.MethodPost, "/api/v1/reservations", fmt.Sprintf(`{"schedule_id":%d}`, scheduleID), user)
}

func TestLastSeat_ConcurrentRequests(t *testing.T) {
	router := setupIntegrationTest(t, false)

	instructor := testutil.CreateUser(t, testDB, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, testDB, instructor.ID, time.Now().Add(7*24*time.Hour), 1)

	users := make([]*model.User, 2)
	tickets := make([]*model.Ticket, 2)
	for i := range users {
		users[i] = testutil.CreateUser(t, testDB, model.RoleStudent)
		tickets[i] = testutil.CreateTicket(t, testDB, users[i].ID, 3, time.Now().AddDate(0, 6, 0))
	}

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = reserve(t, router, schedule.ID, users[i]).Code
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)

	counter, rows := testutil.ReservationCount(t, testDB, schedule.ID)
	assert.Equal(t, 1, counter)
	assert.Equal(t, 1, rows)

	remaining := testutil.TicketRemaining(t, testDB, tickets[0].ID) + testutil.TicketRemaining(t, testDB, tickets[1].ID)
	assert.Equal(t, 5, remaining)

	// worker 收到事件後快取會反映已滿
	assert.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/schedules/%d/availability", schedule.ID), "", nil)
		var availability model.Availability
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &availability) != nil {
			return false
		}
		return availability.IsFull && availability.ReservationCount == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestBookThenCancel_RestoresTicketAndSeat(t *testing.T) {
	router := setupIntegrationTest(t, false)

	instructor := testutil.CreateUser(t, testDB, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, testDB, instructor.ID, time.Now().Add(7*24*time.Hour), 5)
	user := testutil.CreateUser(t, testDB, model.RoleStudent)
	ticket := testutil.CreateTicket(t, testDB, user.ID, 3, time.Now().AddDate(0, 6, 0))

	w := reserve(t, router, schedule.ID, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reservation model.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reservation))
	assert.Equal(t, 2, testutil.TicketRemaining(t, testDB, ticket.ID))

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", reservation.ID), "", user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled model.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))

	assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
	assert.Equal(t, 3, testutil.TicketRemaining(t, testDB, ticket.ID))
	counter, _ := testutil.ReservationCount(t, testDB, schedule.ID)
	assert.Equal(t, 0, counter)

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", reservation.ID), "", user)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCompleteLesson_MarksRemainingAbsent(t *testing.T) {
	router := setupIntegrationTest(t, false)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, testDB, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, testDB, instructor.ID, time.Now().Add(10*time.Minute), 5)

	students := make([]*model.User, 2)
	for i := range students {
		students[i] = testutil.CreateUser(t, testDB, model.RoleStudent)
		testutil.CreateTicket(t, testDB, students[i].ID, 1, time.Now().AddDate(0, 1, 0))
		require.Equal(t, http.StatusCreated, reserve(t, router, schedule.ID, students[i]).Code)
	}

	path := fmt.Sprintf("/api/v1/instructor/schedules/%d", schedule.ID)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, path+"/start", "", instructor).Code)

	w := do(t, router, http.MethodPost, path+"/complete", "", instructor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary model.AttendanceSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Absent)
	assert.True(t, summary.Completed)

	var status string
	require.NoError(t, testDB.QueryRow(ctx, `SELECT status FROM schedules WHERE id = $1`, schedule.ID).Scan(&status))
	assert.Equal(t, string(model.ScheduleStatusCompleted), status)

	for _, student := range students {
		var points int
		require.NoError(t, testDB.QueryRow(ctx, `SELECT penalty_point FROM users WHERE id = $1`, student.ID).Scan(&points))
		assert.Equal(t, 1, points)
	}
}

func TestPublishFailure_KeepsBooking(t *testing.T) {
	router := setupIntegrationTest(t, true)

	instructor := testutil.CreateUser(t, testDB, model.RoleInstructor)
	schedule := testutil.CreateSchedule(t, testDB, instructor.ID, time.Now().Add(7*24*time.Hour), 5)
	user := testutil.CreateUser(t, testDB, model.RoleStudent)
	testutil.CreateTicket(t, testDB, user.ID, 1, time.Now().AddDate(0, 1, 0))

	w := reserve(t, router, schedule.ID, user)
	assert.Equal(t, http.StatusCreated, w.Code)

	_, rows := testutil.ReservationCount(t, testDB, schedule.ID)
	assert.Equal(t, 1, rows)
}
