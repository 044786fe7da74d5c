package mocks

import (
	"context"
	"lesson-booking/internal/model"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockScheduleRepository struct {
	mock.Mock
}

func NewMockScheduleRepository(t testingT) *MockScheduleRepository {
	m := &MockScheduleRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error) {
	args := m.Called(ctx, schedule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) FindByID(ctx context.Context, id int) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) ListByInstructor(ctx context.Context, instructorID int, from time.Time) ([]*model.Schedule, error) {
	args := m.Called(ctx, instructorID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id int) (*model.Schedule, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) TryReserveSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error) {
	args := m.Called(ctx, tx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) ReleaseSlot(ctx context.Context, tx pgx.Tx, id int, now time.Time) (*model.Schedule, error) {
	args := m.Called(ctx, tx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, from, to model.ScheduleStatus, now time.Time) (*model.Schedule, error) {
	args := m.Called(ctx, tx, id, from, to, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Update(ctx context.Context, tx pgx.Tx, schedule *model.Schedule, now time.Time) (*model.Schedule, error) {
	args := m.Called(ctx, tx, schedule, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Delete(ctx context.Context, tx pgx.Tx, id int) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}
