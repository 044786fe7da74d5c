package mocks

import (
	"context"
	"lesson-booking/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAttendanceService struct {
	mock.Mock
}

func NewMockAttendanceService(t testingT) *MockAttendanceService {
	m := &MockAttendanceService{}
	register(&m.Mock, t)
	return m
}

func (m *MockAttendanceService) Start(ctx context.Context, caller model.Caller, scheduleID int) (*model.Schedule, error) {
	args := m.Called(ctx, caller, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockAttendanceService) MarkAttendance(ctx context.Context, caller model.Caller, scheduleID int, req model.MarkAttendanceRequest) (*model.AttendanceSummary, error) {
	args := m.Called(ctx, caller, scheduleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttendanceSummary), args.Error(1)
}

func (m *MockAttendanceService) Complete(ctx context.Context, caller model.Caller, scheduleID int) (*model.AttendanceSummary, error) {
	args := m.Called(ctx, caller, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttendanceSummary), args.Error(1)
}

func (m *MockAttendanceService) InstructorSchedules(ctx context.Context, caller model.Caller) ([]*model.InstructorSchedule, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.InstructorSchedule), args.Error(1)
}
