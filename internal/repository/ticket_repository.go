package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate loads the ticket and locks it for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	UpdateAssignee(ctx context.Context, id string, assignee domain.OptionalID) error
	// Delete removes the ticket together with its comments and status logs.
	Delete(ctx context.Context, id string) error
	GetView(ctx context.Context, id string) (*domain.TicketView, error)
	// ListViews returns every ticket in insertion order.
	ListViews(ctx context.Context) ([]domain.TicketView, error)
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `id, title, description, status, priority, created_by, assigned_to, created_at`

const ticketViewQuery = `
        SELECT t.id, t.title, t.description, t.status, t.priority, t.created_by, t.assigned_to, t.created_at,
               c.id, c.name, c.email, cr.name, c.created_at,
               a.id, a.name, a.email, ar.name, a.created_at
        FROM tickets t
        JOIN users c ON c.id = t.created_by
        JOIN roles cr ON cr.id = c.role_id
        LEFT JOIN users a ON a.id = t.assigned_to
        LEFT JOIN roles ar ON ar.id = a.role_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, created_by, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return mapError(r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.AssignedTo.Ptr(),
	).Scan(&ticket.ID, &ticket.CreatedAt))
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1 WHERE id=$2`
	return r.execOne(ctx, query, status, id)
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id string, assignee domain.OptionalID) error {
	const query = `UPDATE tickets SET assigned_to=$1 WHERE id=$2`
	return r.execOne(ctx, query, assignee.Ptr(), id)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	// ticket_comments and ticket_status_logs reference tickets with ON DELETE CASCADE.
	const query = `DELETE FROM tickets WHERE id=$1`
	return r.execOne(ctx, query, id)
}

func (r *ticketRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetView(ctx context.Context, id string) (*domain.TicketView, error) {
	return scanTicketView(r.db.QueryRow(ctx, ticketViewQuery+` WHERE t.id=$1`, id))
}

func (r *ticketRepository) ListViews(ctx context.Context) ([]domain.TicketView, error) {
	rows, err := r.db.Query(ctx, ticketViewQuery+` ORDER BY t.seq ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.TicketView{}
	for rows.Next() {
		view, err := scanTicketView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, mapError(rows.Err())
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket     domain.Ticket
		assignedTo *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&assignedTo,
		&ticket.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	ticket.AssignedTo = domain.OptionalIDFromPtr(assignedTo)
	return &ticket, nil
}

func scanTicketView(row pgx.Row) (*domain.TicketView, error) {
	var (
		view       domain.TicketView
		assignedTo *string
		assignee   nullableUser
	)
	if err := row.Scan(
		&view.ID,
		&view.Title,
		&view.Description,
		&view.Status,
		&view.Priority,
		&view.CreatedBy,
		&assignedTo,
		&view.CreatedAt,
		&view.Creator.ID,
		&view.Creator.Name,
		&view.Creator.Email,
		&view.Creator.Role,
		&view.Creator.CreatedAt,
		&assignee.id,
		&assignee.name,
		&assignee.email,
		&assignee.role,
		&assignee.createdAt,
	); err != nil {
		return nil, mapError(err)
	}
	view.AssignedTo = domain.OptionalIDFromPtr(assignedTo)
	view.Assignee = assignee.summary()
	return &view, nil
}
