package service

import (
	"cmp"
	"context"
	"fmt"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/database"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	apperrors "lesson-booking/pkg/app_errors"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
)

type AttendanceService interface {
	// 開始上課：開課前 StartWindow 內才允許
	Start(ctx context.Context, caller model.Caller, scheduleID int) (*model.Schedule, error)
	// 點名：缺席者記點，全部點完自動結束課程
	MarkAttendance(ctx context.Context, caller model.Caller, scheduleID int, req model.MarkAttendanceRequest) (*model.AttendanceSummary, error)
	// 結束課程：尚未點名者一律視為缺席
	Complete(ctx context.Context, caller model.Caller, scheduleID int) (*model.AttendanceSummary, error)
	InstructorSchedules(ctx context.Context, caller model.Caller) ([]*model.InstructorSchedule, error)
}

type AttendanceServiceImpl struct {
	db           database.TxBeginner
	scheduleRepo repository.ScheduleRepository
	repository   repository.ReservationRepository
	penalties    PenaltyLedger
	clock        clock.Clock
	policy       Policy
	events       eventPublisher
}

func NewAttendanceService(
	db database.TxBeginner,
	scheduleRepository repository.ScheduleRepository,
	reservationRepository repository.ReservationRepository,
	penalties PenaltyLedger,
	eventQueue queue.EventQueue,
	clk clock.Clock,
	policy Policy,
) AttendanceService {
	return &AttendanceServiceImpl{
		db:           db,
		scheduleRepo: scheduleRepository,
		repository:   reservationRepository,
		penalties:    penalties,
		clock:        clk,
		policy:       policy,
		events:       newEventPublisher(eventQueue),
	}
}

func (s *AttendanceServiceImpl) Start(ctx context.Context, caller model.Caller, scheduleID int) (*model.Schedule, error) {
	now := s.clock.Now()
	var started *model.Schedule

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.lockAuthorized(ctx, tx, caller, scheduleID)
		if err != nil {
			return err
		}

		next, err := schedule.Status.Start()
		if err != nil {
			return err
		}
		if !schedule.CanStart(now, s.policy.StartWindow) {
			return apperrors.ErrTooEarly
		}

		started, err = s.scheduleRepo.UpdateStatus(ctx, tx, scheduleID, schedule.Status, next, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	event := model.NewDomainEvent(model.EventScheduleStarted, now)
	event.ScheduleID = started.ID
	s.events.publish(ctx, event)

	return started, nil
}

func (s *AttendanceServiceImpl) MarkAttendance(
	ctx context.Context,
	caller model.Caller,
	scheduleID int,
	req model.MarkAttendanceRequest,
) (*model.AttendanceSummary, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var summary *model.AttendanceSummary
	var events []*model.DomainEvent

	err := retryOnce("mark_attendance", func() error {
		var err error
		summary, events, err = s.markOnce(ctx, caller, scheduleID, req, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, events...)
	return summary, nil
}

func (s *AttendanceServiceImpl) markOnce(
	ctx context.Context,
	caller model.Caller,
	scheduleID int,
	req model.MarkAttendanceRequest,
	now time.Time,
) (*model.AttendanceSummary, []*model.DomainEvent, error) {
	summary := &model.AttendanceSummary{ScheduleID: scheduleID}
	var events []*model.DomainEvent

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.lockAuthorized(ctx, tx, caller, scheduleID)
		if err != nil {
			return err
		}
		if schedule.Status != model.ScheduleStatusInProgress {
			return fmt.Errorf("schedule is %s: %w", schedule.Status, apperrors.ErrInvalidTransition)
		}

		pending, err := s.reservedByID(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		var absentees []*model.Reservation
		for _, mark := range req.Marks {
			reservation, ok := pending[mark.ReservationID]
			if !ok {
				// 已點過名或不屬於這個時段
				summary.Skipped++
				continue
			}
			delete(pending, mark.ReservationID)

			if mark.Status != model.ReservationStatusAttended {
				absentees = append(absentees, reservation)
				continue
			}

			next, err := reservation.Status.Attend()
			if err != nil {
				return err
			}
			if _, err := s.repository.UpdateStatus(ctx, tx, reservation.ID, next, now); err != nil {
				return err
			}
			summary.Attended++
		}

		events, err = s.markAbsent(ctx, tx, absentees, now, summary)
		if err != nil {
			return err
		}

		if len(pending) == 0 {
			next, err := schedule.Status.Complete()
			if err != nil {
				return err
			}
			if _, err := s.scheduleRepo.UpdateStatus(ctx, tx, scheduleID, schedule.Status, next, now); err != nil {
				return err
			}
			summary.Completed = true
			events = append(events, s.completedEvent(scheduleID, now))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return summary, events, nil
}

func (s *AttendanceServiceImpl) Complete(ctx context.Context, caller model.Caller, scheduleID int) (*model.AttendanceSummary, error) {
	now := s.clock.Now()
	var summary *model.AttendanceSummary
	var events []*model.DomainEvent

	err := retryOnce("complete", func() error {
		var err error
		summary, events, err = s.completeOnce(ctx, caller, scheduleID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, events...)
	return summary, nil
}

func (s *AttendanceServiceImpl) completeOnce(
	ctx context.Context,
	caller model.Caller,
	scheduleID int,
	now time.Time,
) (*model.AttendanceSummary, []*model.DomainEvent, error) {
	summary := &model.AttendanceSummary{ScheduleID: scheduleID}
	var events []*model.DomainEvent

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.lockAuthorized(ctx, tx, caller, scheduleID)
		if err != nil {
			return err
		}
		next, err := schedule.Status.Complete()
		if err != nil {
			return err
		}

		remaining, err := s.repository.ListReservedWithLock(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		events, err = s.markAbsent(ctx, tx, remaining, now, summary)
		if err != nil {
			return err
		}

		if _, err := s.scheduleRepo.UpdateStatus(ctx, tx, scheduleID, schedule.Status, next, now); err != nil {
			return err
		}
		summary.Completed = true
		events = append(events, s.completedEvent(scheduleID, now))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return summary, events, nil
}

// InstructorSchedules 今天起的課表，附帶未取消的預約與能否開始上課
func (s *AttendanceServiceImpl) InstructorSchedules(ctx context.Context, caller model.Caller) ([]*model.InstructorSchedule, error) {
	if !caller.IsInstructor() {
		return nil, apperrors.ErrForbidden
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	schedules, err := s.scheduleRepo.ListByInstructor(ctx, caller.UserID, today)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(schedules))
	for _, schedule := range schedules {
		ids = append(ids, schedule.ID)
	}
	reservations, err := s.repository.ListBySchedules(ctx, ids)
	if err != nil {
		return nil, err
	}

	bySchedule := make(map[int][]*model.Reservation, len(schedules))
	for _, reservation := range reservations {
		bySchedule[reservation.ScheduleID] = append(bySchedule[reservation.ScheduleID], reservation)
	}

	result := make([]*model.InstructorSchedule, 0, len(schedules))
	for _, schedule := range schedules {
		list := bySchedule[schedule.ID]
		if list == nil {
			list = []*model.Reservation{}
		}
		result = append(result, &model.InstructorSchedule{
			Schedule:     schedule,
			Reservations: list,
			CanStart:     schedule.CanStart(now, s.policy.StartWindow),
		})
	}
	return result, nil
}

func (s *AttendanceServiceImpl) lockAuthorized(ctx context.Context, tx pgx.Tx, caller model.Caller, scheduleID int) (*model.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByIDWithLock(ctx, tx, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSchedule(caller, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *AttendanceServiceImpl) reservedByID(ctx context.Context, tx pgx.Tx, scheduleID int) (map[int]*model.Reservation, error) {
	reserved, err := s.repository.ListReservedWithLock(ctx, tx, scheduleID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*model.Reservation, len(reserved))
	for _, reservation := range reserved {
		byID[reservation.ID] = reservation
	}
	return byID, nil
}

// markAbsent 標記缺席並記點；依 user id 順序鎖使用者，達門檻時多發一個停權事件
func (s *AttendanceServiceImpl) markAbsent(
	ctx context.Context,
	tx pgx.Tx,
	absentees []*model.Reservation,
	now time.Time,
	summary *model.AttendanceSummary,
) ([]*model.DomainEvent, error) {
	sorted := slices.Clone(absentees)
	slices.SortFunc(sorted, func(a, b *model.Reservation) int {
		return cmp.Compare(a.UserID, b.UserID)
	})

	var events []*model.DomainEvent
	for _, reservation := range sorted {
		next, err := reservation.Status.MarkAbsent()
		if err != nil {
			return nil, err
		}
		if _, err := s.repository.UpdateStatus(ctx, tx, reservation.ID, next, now); err != nil {
			return nil, err
		}
		user, err := s.penalties.Penalize(ctx, tx, reservation.UserID)
		if err != nil {
			return nil, err
		}
		summary.Absent++

		absent := model.NewDomainEvent(model.EventAttendanceAbsent, now)
		absent.UserID = reservation.UserID
		absent.ScheduleID = reservation.ScheduleID
		absent.ReservationID = reservation.ID
		absent.Payload = map[string]any{"penalty_point": user.PenaltyPoint}
		events = append(events, absent)

		if user.IsSuspended(now) && user.PenaltyPoint >= model.PenaltyThreshold {
			summary.SuspendedUsers = append(summary.SuspendedUsers, user.ID)

			suspended := model.NewDomainEvent(model.EventUserSuspended, now)
			suspended.UserID = user.ID
			suspended.Payload = map[string]any{
				"penalty_point":   user.PenaltyPoint,
				"suspended_until": user.SuspendedUntil.Format(time.RFC3339),
			}
			events = append(events, suspended)
		}
	}
	return events, nil
}

func (s *AttendanceServiceImpl) completedEvent(scheduleID int, now time.Time) *model.DomainEvent {
	event := model.NewDomainEvent(model.EventScheduleCompleted, now)
	event.ScheduleID = scheduleID
	return event
}
