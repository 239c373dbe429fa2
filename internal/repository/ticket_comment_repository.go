package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	GetView(ctx context.Context, id string) (*domain.CommentView, error)
	// ListViewsByTicket returns the thread oldest first.
	ListViewsByTicket(ctx context.Context, ticketID string) ([]domain.CommentView, error)
}

type commentRepository struct {
	db DBTX
}

const commentViewQuery = `
        SELECT c.id, c.ticket_id, c.user_id, c.comment, c.created_at,
               u.id, u.name, u.email, r.name, u.created_at
        FROM ticket_comments c
        JOIN users u ON u.id = c.user_id
        JOIN roles r ON r.id = u.role_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, comment)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return mapError(r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Text,
	).Scan(&comment.ID, &comment.CreatedAt))
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, user_id, comment, created_at
        FROM ticket_comments WHERE id=$1`

	var comment domain.Comment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Text,
		&comment.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &comment, nil
}

func (r *commentRepository) UpdateText(ctx context.Context, id, text string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_comments SET comment=$1 WHERE id=$2`, text, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM ticket_comments WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepository) GetView(ctx context.Context, id string) (*domain.CommentView, error) {
	return scanCommentView(r.db.QueryRow(ctx, commentViewQuery+` WHERE c.id=$1`, id))
}

func (r *commentRepository) ListViewsByTicket(ctx context.Context, ticketID string) ([]domain.CommentView, error) {
	rows, err := r.db.Query(ctx, commentViewQuery+` WHERE c.ticket_id=$1 ORDER BY c.created_at ASC, c.seq ASC`, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.CommentView{}
	for rows.Next() {
		view, err := scanCommentView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, mapError(rows.Err())
}

func scanCommentView(row pgx.Row) (*domain.CommentView, error) {
	var view domain.CommentView
	if err := row.Scan(
		&view.ID,
		&view.TicketID,
		&view.AuthorID,
		&view.Text,
		&view.CreatedAt,
		&view.Author.ID,
		&view.Author.Name,
		&view.Author.Email,
		&view.Author.Role,
		&view.Author.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &view, nil
}
