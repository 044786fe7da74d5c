package service

import (
	"context"
	"fmt"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/repository"
	apperrors "lesson-booking/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// TicketLedger 預約流程在交易內使用的票券操作
type TicketLedger interface {
	SelectConsumable(ctx context.Context, tx pgx.Tx, userID int) (*model.Ticket, error)
	Consume(ctx context.Context, tx pgx.Tx, ticketID int) error
	Refund(ctx context.Context, tx pgx.Tx, ticketID int) error
}

type TicketService interface {
	TicketLedger

	Purchase(ctx context.Context, caller model.Caller, req model.PurchaseTicketRequest) (*model.Ticket, error)
	ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Ticket, error)
	Get(ctx context.Context, caller model.Caller, id int) (*model.Ticket, error)
	AdminList(ctx context.Context, caller model.Caller, filter model.TicketFilter) ([]*model.Ticket, error)
}

type TicketServiceImpl struct {
	repository repository.TicketRepository
	clock      clock.Clock
	policy     Policy
	events     eventPublisher
}

func NewTicketService(
	ticketRepository repository.TicketRepository,
	eventQueue queue.EventQueue,
	clk clock.Clock,
	policy Policy,
) TicketService {
	return &TicketServiceImpl{
		repository: ticketRepository,
		clock:      clk,
		policy:     policy,
		events:     newEventPublisher(eventQueue),
	}
}

// SelectConsumable 最早到期的可用票券，並鎖住該列
func (s *TicketServiceImpl) SelectConsumable(ctx context.Context, tx pgx.Tx, userID int) (*model.Ticket, error) {
	return s.repository.SelectConsumableWithLock(ctx, tx, userID, s.clock.Now())
}

func (s *TicketServiceImpl) Consume(ctx context.Context, tx pgx.Tx, ticketID int) error {
	return s.repository.Consume(ctx, tx, ticketID, s.clock.Now())
}

// Refund 退回原票券，即使已過期也照退
func (s *TicketServiceImpl) Refund(ctx context.Context, tx pgx.Tx, ticketID int) error {
	return s.repository.Refund(ctx, tx, ticketID, s.clock.Now())
}

// Purchase 模擬購買，不經過金流
func (s *TicketServiceImpl) Purchase(ctx context.Context, caller model.Caller, req model.PurchaseTicketRequest) (*model.Ticket, error) {
	if !caller.IsStudent() {
		return nil, apperrors.ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket, err := s.repository.Create(ctx, model.NewTicket(caller.UserID, req.Plan, now, s.policy.TicketValidMonths))
	if err != nil {
		return nil, fmt.Errorf("purchase ticket: %w", err)
	}

	event := model.NewDomainEvent(model.EventTicketPurchased, now)
	event.UserID = ticket.UserID
	event.TicketID = ticket.ID
	event.Payload = map[string]any{"plan": ticket.Plan, "price": ticket.PricePaid.String()}
	s.events.publish(ctx, event)

	return ticket, nil
}

func (s *TicketServiceImpl) ListMine(ctx context.Context, caller model.Caller, page model.Pagination) ([]*model.Ticket, error) {
	return s.repository.ListByUser(ctx, caller.UserID, page)
}

func (s *TicketServiceImpl) Get(ctx context.Context, caller model.Caller, id int) (*model.Ticket, error) {
	ticket, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.UserID && !caller.IsStaff() {
		return nil, apperrors.ErrForbidden
	}
	return ticket, nil
}

func (s *TicketServiceImpl) AdminList(ctx context.Context, caller model.Caller, filter model.TicketFilter) ([]*model.Ticket, error) {
	if !caller.IsStaff() {
		return nil, apperrors.ErrForbidden
	}
	return s.repository.List(ctx, filter, s.clock.Now())
}
