package service

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/database"
	"lesson-booking/internal/metrics"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	apperrors "lesson-booking/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

type ReservationService interface {
	// 預約：檢查停權、重複、名額與票券後一次寫入
	Create(ctx context.Context, caller model.Caller, req model.CreateReservationRequest) (*model.Reservation, error)
	// 取消：退名額、退票券
	Cancel(ctx context.Context, caller model.Caller, id int) (*model.Reservation, error)
	ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Reservation, error)
	AdminList(ctx context.Context, caller model.Caller, filter model.ReservationFilter) ([]*model.Reservation, error)
}

type ReservationServiceImpl struct {
	db           database.TxBeginner
	repository   repository.ReservationRepository
	scheduleRepo repository.ScheduleRepository
	userRepo     repository.UserRepository
	capacity     ScheduleCapacity
	ledger       TicketLedger
	clock        clock.Clock
	policy       Policy
	events       eventPublisher
}

func NewReservationService(
	db database.TxBeginner,
	reservationRepository repository.ReservationRepository,
	scheduleRepository repository.ScheduleRepository,
	userRepository repository.UserRepository,
	capacity ScheduleCapacity,
	ledger TicketLedger,
	eventQueue queue.EventQueue,
	clk clock.Clock,
	policy Policy,
) ReservationService {
	return &ReservationServiceImpl{
		db:           db,
		repository:   reservationRepository,
		scheduleRepo: scheduleRepository,
		userRepo:     userRepository,
		capacity:     capacity,
		ledger:       ledger,
		clock:        clk,
		policy:       policy,
		events:       newEventPublisher(eventQueue),
	}
}

func (s *ReservationServiceImpl) Create(ctx context.Context, caller model.Caller, req model.CreateReservationRequest) (*model.Reservation, error) {
	if !caller.IsStudent() {
		return nil, apperrors.ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var reservation *model.Reservation
	err := retryOnce("create", func() error {
		var err error
		reservation, err = s.createOnce(ctx, caller.UserID, req.ScheduleID)
		return err
	})
	if err != nil {
		// 重試後仍是序列化衝突，視為名額競爭失敗
		if database.IsRetryable(err) {
			err = fmt.Errorf("%w: %v", apperrors.ErrScheduleFull, err)
		}
		metrics.TrackReservation("create", createOutcome(err))
		return nil, err
	}
	metrics.TrackReservation("create", metrics.OutcomeOK)

	event := model.NewDomainEvent(model.EventReservationCreated, reservation.ReservedAt)
	event.UserID = reservation.UserID
	event.ScheduleID = reservation.ScheduleID
	event.ReservationID = reservation.ID
	event.TicketID = reservation.TicketID
	s.events.publish(ctx, event)

	return reservation, nil
}

// createOnce 鎖定順序：schedule -> user -> ticket
func (s *ReservationServiceImpl) createOnce(ctx context.Context, userID int, scheduleID int) (*model.Reservation, error) {
	now := s.clock.Now()
	var reservation *model.Reservation

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, scheduleErr := s.scheduleRepo.FindByIDWithLock(ctx, tx, scheduleID)
		if scheduleErr != nil && !errors.Is(scheduleErr, apperrors.ErrNotFound) {
			return scheduleErr
		}

		// 1. 停權檢查優先於其他錯誤
		user, err := s.userRepo.FindByIDWithLock(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.IsSuspended(now) {
			return apperrors.ErrSuspended
		}

		// 2. 時段存在且尚未開始
		if scheduleErr != nil {
			return scheduleErr
		}
		if schedule.Status != model.ScheduleStatusUpcoming {
			return fmt.Errorf("schedule is %s: %w", schedule.Status, apperrors.ErrInvalidTransition)
		}
		if !schedule.StartAt.After(now) {
			return fmt.Errorf("schedule already started: %w", apperrors.ErrInvalidTransition)
		}

		// 3. 重複預約
		exists, err := s.repository.ExistsActive(ctx, tx, userID, scheduleID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ErrDuplicateReservation
		}

		// 4. 佔名額
		updated, err := s.capacity.TryReserveSlot(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		// 5. 扣票券，失敗時 rollback 會一併釋放名額
		ticket, err := s.ledger.SelectConsumable(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.ledger.Consume(ctx, tx, ticket.ID); err != nil {
			return err
		}

		// 6. 寫入預約
		created, err := s.repository.Create(ctx, tx, &model.Reservation{
			UserID:     userID,
			ScheduleID: scheduleID,
			TicketID:   ticket.ID,
			Status:     model.ReservationStatusReserved,
			ReservedAt: now,
		})
		if err != nil {
			return err
		}
		created.Schedule = updated
		reservation = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

func (s *ReservationServiceImpl) Cancel(ctx context.Context, caller model.Caller, id int) (*model.Reservation, error) {
	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != caller.UserID && !caller.IsStaff() {
		return nil, apperrors.ErrNotOwner
	}

	var cancelled *model.Reservation
	err = retryOnce("cancel", func() error {
		var err error
		cancelled, err = s.cancelOnce(ctx, existing)
		return err
	})
	if err != nil {
		if database.IsRetryable(err) {
			err = fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
		}
		metrics.TrackReservation("cancel", cancelOutcome(err))
		return nil, err
	}
	metrics.TrackReservation("cancel", metrics.OutcomeOK)

	event := model.NewDomainEvent(model.EventReservationCancelled, *cancelled.CancelledAt)
	event.UserID = cancelled.UserID
	event.ScheduleID = cancelled.ScheduleID
	event.ReservationID = cancelled.ID
	event.TicketID = cancelled.TicketID
	event.Payload = map[string]any{"cancelled_by": caller.UserID}
	s.events.publish(ctx, event)

	return cancelled, nil
}

// cancelOnce 先鎖時段再鎖預約，與 Create 的鎖定順序一致
func (s *ReservationServiceImpl) cancelOnce(ctx context.Context, existing *model.Reservation) (*model.Reservation, error) {
	now := s.clock.Now()
	var cancelled *model.Reservation

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		schedule, err := s.scheduleRepo.FindByIDWithLock(ctx, tx, existing.ScheduleID)
		if err != nil {
			return err
		}

		reservation, err := s.repository.FindByIDWithLock(ctx, tx, existing.ID)
		if err != nil {
			return err
		}
		if _, err := reservation.Status.Cancel(); err != nil {
			return err
		}

		if schedule.CancellationClosed(now, s.policy.CancellationCutoff) {
			return apperrors.ErrCancellationClosed
		}

		cancelled, err = s.repository.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusCancelled, now)
		if err != nil {
			return err
		}

		updated, err := s.capacity.ReleaseSlot(ctx, tx, reservation.ScheduleID)
		if err != nil {
			return err
		}
		cancelled.Schedule = updated

		return s.ledger.Refund(ctx, tx, reservation.TicketID)
	})
	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

func (s *ReservationServiceImpl) ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Reservation, error) {
	return s.repository.ListByUser(ctx, caller.UserID, page)
}

func (s *ReservationServiceImpl) AdminList(ctx context.Context, caller model.Caller, filter model.ReservationFilter) ([]*model.Reservation, error) {
	if !caller.IsStaff() {
		return nil, apperrors.ErrForbidden
	}
	return s.repository.List(ctx, filter)
}

func createOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrScheduleFull):
		return metrics.OutcomeFull
	case errors.Is(err, apperrors.ErrDuplicateReservation):
		return metrics.OutcomeDuplicate
	case errors.Is(err, apperrors.ErrNoValidTicket), errors.Is(err, apperrors.ErrInsufficientTicket):
		return metrics.OutcomeNoTicket
	case errors.Is(err, apperrors.ErrSuspended):
		return metrics.OutcomeSuspended
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidTransition):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func cancelOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCancellationClosed):
		return metrics.OutcomeCancellationClosed
	case errors.Is(err, apperrors.ErrAlreadyCancelled), errors.Is(err, apperrors.ErrNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
