package mocks

import (
	"context"
	"lesson-booking/internal/model"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepository struct {
	mock.Mock
}

func NewMockReservationRepository(t testingT) *MockReservationRepository {
	m := &MockReservationRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id int) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Reservation, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListBySchedules(ctx context.Context, scheduleIDs []int) ([]*model.Reservation, error) {
	args := m.Called(ctx, scheduleIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error) {
	args := m.Called(ctx, tx, reservation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Reservation, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ExistsActive(ctx context.Context, tx pgx.Tx, userID int, scheduleID int) (bool, error) {
	args := m.Called(ctx, tx, userID, scheduleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepository) ListReservedWithLock(ctx context.Context, tx pgx.Tx, scheduleID int) ([]*model.Reservation, error) {
	args := m.Called(ctx, tx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, to model.ReservationStatus, now time.Time) (*model.Reservation, error) {
	args := m.Called(ctx, tx, id, to, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}
