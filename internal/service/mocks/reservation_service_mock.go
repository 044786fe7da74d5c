package mocks

import (
	"context"
	"lesson-booking/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockReservationService struct {
	mock.Mock
}

func NewMockReservationService(t testingT) *MockReservationService {
	m := &MockReservationService{}
	register(&m.Mock, t)
	return m
}

func (m *MockReservationService) Create(ctx context.Context, caller model.Caller, req model.CreateReservationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, caller model.Caller, id int) (*model.Reservation, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Reservation, error) {
	args := m.Called(ctx, caller, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *MockReservationService) AdminList(ctx context.Context, caller model.Caller, filter model.ReservationFilter) ([]*model.Reservation, error) {
	args := m.Called(ctx, caller, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}
