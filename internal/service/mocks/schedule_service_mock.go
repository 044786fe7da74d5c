package mocks

import (
	"context"
	"lesson-booking/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockScheduleService struct {
	mock.Mock
}

func NewMockScheduleService(t testingT) *MockScheduleService {
	m := &MockScheduleService{}
	register(&m.Mock, t)
	return m
}

func (m *MockScheduleService) Create(ctx context.Context, caller model.Caller, req model.CreateScheduleRequest) (*model.Schedule, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) Get(ctx context.Context, id int) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) List(ctx context.Context, filter model.ScheduleFilter) ([]*model.Schedule, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) Availability(ctx context.Context, id int) (*model.Availability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Availability), args.Error(1)
}

func (m *MockScheduleService) Update(ctx context.Context, caller model.Caller, id int, req model.UpdateScheduleRequest) (*model.Schedule, error) {
	args := m.Called(ctx, caller, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) Cancel(ctx context.Context, caller model.Caller, id int) (*model.Schedule, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) Delete(ctx context.Context, caller model.Caller, id int) error {
	return m.Called(ctx, caller, id).Error(0)
}
