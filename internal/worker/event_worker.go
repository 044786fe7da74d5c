package worker

import (
	"context"
	"errors"
	"lesson-booking/internal/metrics"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/pkg/logger"
	"sync"

	"go.uber.org/zap"
)

// 同一事件處理失敗超過這個次數就不再重送
const maxAttempts = 3

// AvailabilitySyncer 由 ScheduleCapacity 實作，從 DB 重新整理空位快取
type AvailabilitySyncer interface {
	RefreshAvailability(ctx context.Context, scheduleID int) error
}

type EventWorker interface {
	// 訂閱事件隊列
	Start(ctx context.Context) error
	// 等待消費 goroutine 結束
	Wait()
}

type EventWorkerImpl struct {
	syncer AvailabilitySyncer
	queue  queue.EventQueue
	log    *zap.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	attempts map[string]int
}

func NewEventWorker(syncer AvailabilitySyncer, queue queue.EventQueue) EventWorker {
	return &EventWorkerImpl{
		syncer:   syncer,
		queue:    queue,
		log:      logger.WithComponent("worker"),
		attempts: make(map[string]int),
	}
}

func (w *EventWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for msg := range msgs {
			w.handle(ctx, msg)
		}
		w.log.Info("event worker stopped")
	}()
	return nil
}

func (w *EventWorkerImpl) Wait() {
	w.wg.Wait()
}

func (w *EventWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	event := msg.Data
	log := w.log.With(
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
	)

	if err := w.process(ctx, event, log); err != nil {
		if w.retry(event) {
			log.Warn("event failed, requeue", zap.Error(err))
			metrics.TrackEvent(string(event.Type), "retry")
			msg.Nack(true)
			return
		}
		log.Error("event dropped after retries", zap.Error(err))
		metrics.TrackEvent(string(event.Type), "dropped")
		msg.Nack(false)
		return
	}

	w.forget(event)
	metrics.TrackEvent(string(event.Type), "ok")
	msg.Ack()
}

func (w *EventWorkerImpl) process(ctx context.Context, event *model.DomainEvent, log *zap.Logger) error {
	switch event.Type {
	case model.EventUserSuspended:
		log.Info("user suspended",
			zap.Int("user_id", event.UserID),
			zap.Any("suspended_until", event.Payload["suspended_until"]))
	case model.EventAttendanceAbsent:
		log.Info("absence recorded",
			zap.Int("user_id", event.UserID),
			zap.Int("reservation_id", event.ReservationID))
	}

	if !event.TouchesSchedule() {
		return nil
	}
	err := w.syncer.RefreshAvailability(ctx, event.ScheduleID)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// retry 記錄失敗次數，回傳是否還能重送
func (w *EventWorkerImpl) retry(event *model.DomainEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := event.ID.String()
	w.attempts[key]++
	if w.attempts[key] >= maxAttempts {
		delete(w.attempts, key)
		return false
	}
	return true
}

func (w *EventWorkerImpl) forget(event *model.DomainEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, event.ID.String())
}
