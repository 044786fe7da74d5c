package repository

import (
	"context"
	"errors"
	"fmt"
	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	FindByID(ctx context.Context, id int) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Ticket, error)
	List(ctx context.Context, filter model.TicketFilter, now time.Time) ([]*model.Ticket, error)

	// Transaction methods
	SelectConsumableWithLock(ctx context.Context, tx pgx.Tx, userID int, now time.Time) (*model.Ticket, error)
	Consume(ctx context.Context, tx pgx.Tx, id int, now time.Time) error
	Refund(ctx context.Context, tx pgx.Tx, id int, now time.Time) error
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `id, user_id, plan, remaining_count, price_paid,
	purchased_at, expires_at, created_at, updated_at`

func scanTicket(row rowScanner) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Plan,
		&ticket.RemainingCount,
		&ticket.PricePaid,
		&ticket.PurchasedAt,
		&ticket.ExpiresAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func collectTickets(rows pgx.Rows) ([]*model.Ticket, error) {
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (user_id, plan, remaining_count, price_paid, purchased_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + ticketColumns

	created, err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.UserID, ticket.Plan, ticket.RemainingCount,
		ticket.PricePaid, ticket.PurchasedAt, ticket.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return created, nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *TicketRepositoryImpl) ListByUser(ctx context.Context, userID int, page model.Pagination) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY expires_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (r *TicketRepositoryImpl) List(ctx context.Context, filter model.TicketFilter, now time.Time) ([]*model.Ticket, error) {
	var where whereBuilder

	if filter.UserID != nil {
		where.add("user_id = $%d", *filter.UserID)
	}
	if plan := model.TicketPlan(filter.Plan); plan.IsValid() {
		where.add("plan = $%d", plan)
	}
	if filter.ValidOnly {
		where.addRaw("remaining_count > 0")
		where.add("expires_at >= $%d", now)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tickets
		%s
		ORDER BY id DESC
		LIMIT %s OFFSET %s
	`, ticketColumns, where.clause(), where.next(filter.Limit()), where.next(filter.Offset()))

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// SelectConsumableWithLock 取最早到期的可用票券，同到期日以 id 小的優先
func (r *TicketRepositoryImpl) SelectConsumableWithLock(ctx context.Context, tx pgx.Tx, userID int, now time.Time) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1 AND remaining_count > 0 AND expires_at >= $2
		ORDER BY expires_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`

	ticket, err := scanTicket(tx.QueryRow(ctx, query, userID, now))
	if errors.Is(err, apperrors.ErrTicketNotFound) {
		return nil, apperrors.ErrNoValidTicket
	}
	return ticket, err
}

func (r *TicketRepositoryImpl) Consume(ctx context.Context, tx pgx.Tx, id int, now time.Time) error {
	query := `
		UPDATE tickets
		SET remaining_count = remaining_count - 1, updated_at = $1
		WHERE id = $2 AND remaining_count > 0
	`

	result, err := tx.Exec(ctx, query, now, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrInsufficientTicket
	}

	return nil
}

// Refund 退回原票券，不檢查是否已過期
func (r *TicketRepositoryImpl) Refund(ctx context.Context, tx pgx.Tx, id int, now time.Time) error {
	query := `
		UPDATE tickets
		SET remaining_count = remaining_count + 1, updated_at = $1
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, now, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}

	return nil
}
