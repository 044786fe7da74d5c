package service

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/config"
	"lesson-booking/internal/database"
	"lesson-booking/internal/metrics"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	apperrors "lesson-booking/pkg/app_errors"
	"lesson-booking/pkg/logger"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Policy 預約規則的時間參數
type Policy struct {
	CancellationCutoff time.Duration
	StartWindow        time.Duration
	SuspensionMonths   int
	TicketValidMonths  int
}

func DefaultPolicy() Policy {
	return Policy{
		CancellationCutoff: 24 * time.Hour,
		StartWindow:        30 * time.Minute,
		SuspensionMonths:   1,
		TicketValidMonths:  3,
	}
}

// PolicyFromConfig 未設定的欄位沿用預設值
func PolicyFromConfig(cfg config.AppConfig) Policy {
	p := DefaultPolicy()
	if cfg.CancellationCutoff > 0 {
		p.CancellationCutoff = cfg.CancellationCutoff
	}
	if cfg.StartWindow > 0 {
		p.StartWindow = cfg.StartWindow
	}
	if cfg.SuspensionMonths > 0 {
		p.SuspensionMonths = cfg.SuspensionMonths
	}
	if cfg.TicketValidMonths > 0 {
		p.TicketValidMonths = cfg.TicketValidMonths
	}
	return p
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

// withTx 開交易執行 fn，fn 回傳錯誤時整筆 rollback
func withTx(ctx context.Context, db database.TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// retryOnce 序列化失敗、死鎖或票券競爭時整筆重跑一次
func retryOnce(operation string, fn func() error) error {
	err := fn()
	if err == nil || !shouldRetry(err) {
		return err
	}

	metrics.TrackRetry(operation)
	logger.WithComponent("service").Info("retrying transaction",
		zap.String("operation", operation), zap.Error(err))
	return fn()
}

func shouldRetry(err error) bool {
	return database.IsRetryable(err) || errors.Is(err, apperrors.ErrInsufficientTicket)
}

// authorizeSchedule 講師只能操作自己的時段，staff 不受限
func authorizeSchedule(caller model.Caller, schedule *model.Schedule) error {
	if caller.IsStaff() {
		return nil
	}
	if caller.IsInstructor() && schedule.InstructorID == caller.UserID {
		return nil
	}
	return apperrors.ErrForbidden
}

type eventPublisher struct {
	queue queue.EventQueue
	log   *zap.Logger
}

func newEventPublisher(q queue.EventQueue) eventPublisher {
	return eventPublisher{queue: q, log: logger.WithComponent("publisher")}
}

// publish 在 commit 之後呼叫；失敗只記錄，不影響已完成的交易
func (p eventPublisher) publish(ctx context.Context, events ...*model.DomainEvent) {
	if p.queue == nil || len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	for _, event := range events {
		if err := p.queue.Publish(ctx, event); err != nil {
			metrics.TrackPublishFailure()
			p.log.Warn("failed to publish event",
				zap.String("event_id", event.ID.String()),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
}
