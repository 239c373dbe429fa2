package repository

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// StatusLogRepository is the append-only audit ledger of status transitions.
// Rows are only removed by the cascade of a ticket delete.
type StatusLogRepository interface {
	Append(ctx context.Context, entry *domain.StatusLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusLog, error)
}

type statusLogRepository struct {
	db DBTX
}

func (r *statusLogRepository) Append(ctx context.Context, entry *domain.StatusLog) error {
	const query = `
        INSERT INTO ticket_status_logs (ticket_id, old_status, new_status, changed_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, changed_at`
	return mapError(r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
	).Scan(&entry.ID, &entry.ChangedAt))
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusLog, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, changed_at
        FROM ticket_status_logs WHERE ticket_id=$1 ORDER BY changed_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.StatusLog{}
	for rows.Next() {
		var entry domain.StatusLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
		); err != nil {
			return nil, mapError(err)
		}
		result = append(result, entry)
	}
	return result, mapError(rows.Err())
}
