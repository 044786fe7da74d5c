package mocks

import (
	"context"
	"lesson-booking/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService(t testingT) *MockTicketService {
	m := &MockTicketService{}
	register(&m.Mock, t)
	return m
}

func (m *MockTicketService) SelectConsumable(ctx context.Context, tx pgx.Tx, userID int) (*model.Ticket, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) Consume(ctx context.Context, tx pgx.Tx, ticketID int) error {
	return m.Called(ctx, tx, ticketID).Error(0)
}

func (m *MockTicketService) Refund(ctx context.Context, tx pgx.Tx, ticketID int) error {
	return m.Called(ctx, tx, ticketID).Error(0)
}

func (m *MockTicketService) Purchase(ctx context.Context, caller model.Caller, req model.PurchaseTicketRequest) (*model.Ticket, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Ticket, error) {
	args := m.Called(ctx, caller, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketService) Get(ctx context.Context, caller model.Caller, id int) (*model.Ticket, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketService) AdminList(ctx context.Context, caller model.Caller, filter model.TicketFilter) ([]*model.Ticket, error) {
	args := m.Called(ctx, caller, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}
