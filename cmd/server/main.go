package main

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/config"
	"lesson-booking/internal/cache"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/database"
	"lesson-booking/internal/handler"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	"lesson-booking/internal/service"
	"lesson-booking/internal/worker"
	"lesson-booking/pkg/logger"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		appLog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		appLog.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		appLog.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	hostname, _ := os.Hostname()
	consumerID := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	eventQueue, closeQueue, err := queue.New(ctx, cfg.Events, rdb, consumerID)
	if err != nil {
		appLog.Fatal("Failed to initialize event queue", zap.Error(err))
	}
	defer closeQueue()

	clk := clock.Real()
	policy := service.PolicyFromConfig(cfg.App)

	userRepo := repository.NewUserRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)

	capacity := service.NewScheduleCapacity(scheduleRepo, cache.NewScheduleAvailabilityCache(rdb), clk)
	ticketService := service.NewTicketService(ticketRepo, eventQueue, clk, policy)
	penalties := service.NewPenaltyLedger(userRepo, clk, policy)
	reservationService := service.NewReservationService(
		pool, reservationRepo, scheduleRepo, userRepo, capacity, ticketService, eventQueue, clk, policy,
	)
	attendanceService := service.NewAttendanceService(pool, scheduleRepo, reservationRepo, penalties, eventQueue, clk, policy)
	scheduleService := service.NewScheduleService(
		pool, scheduleRepo, reservationRepo, userRepo, capacity, ticketService, eventQueue, clk,
	)

	eventWorker := worker.NewEventWorker(capacity, eventQueue)
	if err := eventWorker.Start(ctx); err != nil {
		appLog.Fatal("Failed to start event worker", zap.Error(err))
	}

	gin.SetMode(cfg.App.GinMode)
	router := handler.NewRouter(handler.Handlers{
		Reservations: handler.NewReservationHandler(reservationService),
		Tickets:      handler.NewTicketHandler(ticketService),
		Schedules:    handler.NewScheduleHandler(scheduleService),
		Instructor:   handler.NewInstructorHandler(attendanceService),
	}, cfg.App.JWTSecret, logger.WithComponent("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLog.Info("Starting HTTP server", zap.String("port", cfg.App.Port), zap.String("broker", cfg.Events.Broker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server shutdown failed", zap.Error(err))
	}
	eventWorker.Wait()
}
