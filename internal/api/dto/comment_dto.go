package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CommentRequest payload for adding or editing a comment.
type CommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// CommentResponse represents one comment of a ticket thread.
type CommentResponse struct {
	ID        string       `json:"id"`
	TicketID  string       `json:"ticket_id"`
	Comment   string       `json:"comment"`
	User      UserResponse `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewCommentResponse maps a comment view.
func NewCommentResponse(view *domain.CommentView) CommentResponse {
	return CommentResponse{
		ID:        view.ID,
		TicketID:  view.TicketID,
		Comment:   view.Text,
		User:      NewUserResponse(view.Author),
		CreatedAt: view.CreatedAt,
	}
}

// NewCommentResponses maps a ticket thread.
func NewCommentResponses(views []domain.CommentView) []CommentResponse {
	resp := make([]CommentResponse, 0, len(views))
	for i := range views {
		resp = append(resp, NewCommentResponse(&views[i]))
	}
	return resp
}
