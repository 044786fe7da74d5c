package service

import (
	"context"
	"errors"
	"lesson-booking/internal/cache"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/model"
	"lesson-booking/internal/repository"
	apperrors "lesson-booking/pkg/app_errors"
	"lesson-booking/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ScheduleCapacity 時段名額計數。DB 的 reservation_count 是唯一依據，Redis 只做快速查詢
type ScheduleCapacity interface {
	TryReserveSlot(ctx context.Context, tx pgx.Tx, scheduleID int) (*model.Schedule, error)
	ReleaseSlot(ctx context.Context, tx pgx.Tx, scheduleID int) (*model.Schedule, error)
	Availability(ctx context.Context, scheduleID int) (*model.Availability, error)
	RefreshAvailability(ctx context.Context, scheduleID int) error
	Sync(ctx context.Context, schedule *model.Schedule)
	Forget(ctx context.Context, scheduleID int)
}

type ScheduleCapacityImpl struct {
	repository repository.ScheduleRepository
	cache      cache.ScheduleAvailabilityCache
	clock      clock.Clock
	log        *zap.Logger
}

// NewScheduleCapacity availabilityCache 為 nil 時直接查 DB
func NewScheduleCapacity(
	scheduleRepository repository.ScheduleRepository,
	availabilityCache cache.ScheduleAvailabilityCache,
	clk clock.Clock,
) ScheduleCapacity {
	return &ScheduleCapacityImpl{
		repository: scheduleRepository,
		cache:      availabilityCache,
		clock:      clk,
		log:        logger.WithComponent("capacity"),
	}
}

func (s *ScheduleCapacityImpl) TryReserveSlot(ctx context.Context, tx pgx.Tx, scheduleID int) (*model.Schedule, error) {
	return s.repository.TryReserveSlot(ctx, tx, scheduleID, s.clock.Now())
}

func (s *ScheduleCapacityImpl) ReleaseSlot(ctx context.Context, tx pgx.Tx, scheduleID int) (*model.Schedule, error) {
	return s.repository.ReleaseSlot(ctx, tx, scheduleID, s.clock.Now())
}

// Availability 先讀快取，miss 或 Redis 故障時回源 DB 並回填
func (s *ScheduleCapacityImpl) Availability(ctx context.Context, scheduleID int) (*model.Availability, error) {
	if s.cache != nil {
		availability, err := s.cache.Get(ctx, scheduleID)
		if err == nil {
			return availability, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("availability cache read failed", zap.Int("schedule_id", scheduleID), zap.Error(err))
		}
	}

	schedule, err := s.repository.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	s.Sync(ctx, schedule)
	return schedule.Availability(), nil
}

// RefreshAvailability 事件 worker 呼叫；時段已刪除則清掉快取
func (s *ScheduleCapacityImpl) RefreshAvailability(ctx context.Context, scheduleID int) error {
	if s.cache == nil {
		return nil
	}

	schedule, err := s.repository.FindByID(ctx, scheduleID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.cache.Invalidate(ctx, scheduleID)
	}
	if err != nil {
		return err
	}

	_, err = s.cache.Set(ctx, schedule.Availability())
	return err
}

// Sync 寫入快取，失敗只記錄
func (s *ScheduleCapacityImpl) Sync(ctx context.Context, schedule *model.Schedule) {
	if s.cache == nil || schedule == nil {
		return
	}
	applied, err := s.cache.Set(ctx, schedule.Availability())
	if err != nil {
		s.log.Warn("availability cache write failed", zap.Int("schedule_id", schedule.ID), zap.Error(err))
		return
	}
	if !applied {
		s.log.Debug("stale availability ignored", zap.Int("schedule_id", schedule.ID))
	}
}

func (s *ScheduleCapacityImpl) Forget(ctx context.Context, scheduleID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, scheduleID); err != nil {
		s.log.Warn("availability cache invalidate failed", zap.Int("schedule_id", scheduleID), zap.Error(err))
	}
}
