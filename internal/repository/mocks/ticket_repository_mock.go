package mocks

import (
	"context"
	"lesson-booking/internal/model"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository(t testingT) *MockTicketRepository {
	m := &MockTicketRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindByID(ctx context.Context, id int) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Ticket, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, filter model.TicketFilter, now time.Time) ([]*model.Ticket, error) {
	args := m.Called(ctx, filter, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) SelectConsumableWithLock(ctx context.Context, tx pgx.Tx, userID int, now time.Time) (*model.Ticket, error) {
	args := m.Called(ctx, tx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Consume(ctx context.Context, tx pgx.Tx, id int, now time.Time) error {
	args := m.Called(ctx, tx, id, now)
	return args.Error(0)
}

func (m *MockTicketRepository) Refund(ctx context.Context, tx pgx.Tx, id int, now time.Time) error {
	args := m.Called(ctx, tx, id, now)
	return args.Error(0)
}
