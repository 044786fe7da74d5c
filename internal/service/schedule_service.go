package service

import (
	"context"
	"fmt"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/database"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	apperrors "lesson-booking/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

type ScheduleService interface {
	Create(ctx context.Context, caller model.Caller, req model.CreateScheduleRequest) (*model.Schedule, error)
	Get(ctx context.Context, id int) (*model.Schedule, error)
	List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error)
	Availability(ctx context.Context, id int) (*model.Availability, error)
	// 修改：容量不能低於目前預約人數
	Update(ctx context.Context, caller model.Caller, id int, req model.UpdateScheduleRequest) (*model.Schedule, error)
	// 停課：所有預約取消並退票，不受取消期限限制
	Cancel(ctx context.Context, caller model.Caller, id int) (*model.Schedule, error)
	// 刪除：已有預約紀錄的時段不能刪
	Delete(ctx context.Context, caller model.Caller, id int) error
}

type ScheduleServiceImpl struct {
	db              database.TxBeginner
	repository      repository.ScheduleRepository
	reservationRepo repository.ReservationRepository
	userRepo        repository.UserRepository
	capacity        ScheduleCapacity
	ledger          TicketLedger
	clock           clock.Clock
	events          eventPublisher
}

func NewScheduleService(
	db database.TxBeginner,
	scheduleRepository repository.ScheduleRepository,
	reservationRepository repository.ReservationRepository,
	userRepository repository.UserRepository,
	capacity ScheduleCapacity,
	ledger TicketLedger,
	eventQueue queue.EventQueue,
	clk clock.Clock,
) ScheduleService {
	return &ScheduleServiceImpl{
		db:              db,
		repository:      scheduleRepository,
		reservationRepo: reservationRepository,
		userRepo:        userRepository,
		capacity:        capacity,
		ledger:          ledger,
		clock:           clk,
		events:          newEventPublisher(eventQueue),
	}
}

func (s *ScheduleServiceImpl) Create(ctx context.Context, caller model.Caller, req model.CreateScheduleRequest) (*model.Schedule, error) {
	if !caller.IsStaff() && !caller.IsInstructor() {
		return nil, apperrors.ErrForbidden
	}
	if caller.IsInstructor() && req.InstructorID != caller.UserID {
		return nil, apperrors.ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !req.StartAt.After(now) {
		return nil, fmt.Errorf("%w: start_at must be in the future", apperrors.ErrInvalidInput)
	}

	instructor, err := s.userRepo.FindByID(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}
	if instructor.Role != model.RoleInstructor {
		return nil, fmt.Errorf("%w: user %d is not an instructor", apperrors.ErrInvalidInput, instructor.ID)
	}

	schedule, err := s.repository.Create(ctx, &model.Schedule{
		LessonID:     req.LessonID,
		InstructorID: req.InstructorID,
		StartAt:      req.StartAt.UTC(),
		EndAt:        req.EndAt.UTC(),
		Capacity:     req.Capacity,
		Status:       model.ScheduleStatusUpcoming,
	})
	if err != nil {
		return nil, err
	}
	s.capacity.Sync(ctx, schedule)

	event := model.NewDomainEvent(model.EventScheduleCreated, now)
	event.ScheduleID = schedule.ID
	s.events.publish(ctx, event)

	return schedule, nil
}

func (s *ScheduleServiceImpl) Get(ctx context.Context, id int) (*model.Schedule, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *ScheduleServiceImpl) List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error) {
	return s.repository.List(ctx, filter)
}

func (s *ScheduleServiceImpl) Availability(ctx context.Context, id int) (*model.Availability, error) {
	return s.capacity.Availability(ctx, id)
}

func (s *ScheduleServiceImpl) Update(ctx context.Context, caller model.Caller, id int, req model.UpdateScheduleRequest) (*model.Schedule, error) {
	if !caller.IsStaff() && !caller.IsInstructor() {
		return nil, apperrors.ErrForbidden
	}
	if caller.IsInstructor() && req.InstructorID != caller.UserID {
		return nil, apperrors.ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !req.StartAt.After(now) {
		return nil, fmt.Errorf("%w: start_at must be in the future", apperrors.ErrInvalidInput)
	}

	instructor, err := s.userRepo.FindByID(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}
	if instructor.Role != model.RoleInstructor {
		return nil, fmt.Errorf("%w: user %d is not an instructor", apperrors.ErrInvalidInput, instructor.ID)
	}

	var updated *model.Schedule
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.repository.FindByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeSchedule(caller, schedule); err != nil {
			return err
		}
		if schedule.Status != model.ScheduleStatusUpcoming {
			return apperrors.ErrInvalidTransition
		}
		if req.Capacity < schedule.ReservationCount {
			return fmt.Errorf("%w: capacity %d is below %d reservations",
				apperrors.ErrConflict, req.Capacity, schedule.ReservationCount)
		}

		updated, err = s.repository.Update(ctx, tx, &model.Schedule{
			ID:           id,
			LessonID:     req.LessonID,
			InstructorID: req.InstructorID,
			StartAt:      req.StartAt.UTC(),
			EndAt:        req.EndAt.UTC(),
			Capacity:     req.Capacity,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.capacity.Sync(ctx, updated)

	event := model.NewDomainEvent(model.EventScheduleUpdated, now)
	event.ScheduleID = id
	event.Payload = map[string]any{"capacity": updated.Capacity}
	s.events.publish(ctx, event)

	return updated, nil
}

func (s *ScheduleServiceImpl) Cancel(ctx context.Context, caller model.Caller, id int) (*model.Schedule, error) {
	now := s.clock.Now()
	var cancelled *model.Schedule
	var events []*model.DomainEvent

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.repository.FindByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeSchedule(caller, schedule); err != nil {
			return err
		}
		next, err := schedule.Status.Cancel()
		if err != nil {
			return err
		}

		reserved, err := s.reservationRepo.ListReservedWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, reservation := range reserved {
			if _, err := s.reservationRepo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusCancelled, now); err != nil {
				return err
			}
			if _, err := s.capacity.ReleaseSlot(ctx, tx, id); err != nil {
				return err
			}
			if err := s.ledger.Refund(ctx, tx, reservation.TicketID); err != nil {
				return err
			}

			event := model.NewDomainEvent(model.EventReservationCancelled, now)
			event.UserID = reservation.UserID
			event.ScheduleID = id
			event.ReservationID = reservation.ID
			event.TicketID = reservation.TicketID
			event.Payload = map[string]any{"cancelled_by": caller.UserID, "reason": "schedule_cancelled"}
			events = append(events, event)
		}

		cancelled, err = s.repository.UpdateStatus(ctx, tx, id, schedule.Status, next, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	event := model.NewDomainEvent(model.EventScheduleCancelled, now)
	event.ScheduleID = id
	event.Payload = map[string]any{"refunded": len(events)}
	s.events.publish(ctx, append(events, event)...)

	return cancelled, nil
}

func (s *ScheduleServiceImpl) Delete(ctx context.Context, caller model.Caller, id int) error {
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.repository.FindByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeSchedule(caller, schedule); err != nil {
			return err
		}
		return s.repository.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.capacity.Forget(ctx, id)
	return nil
}
