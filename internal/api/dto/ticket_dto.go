package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,min=5,max=255"`
	Description string `json:"description" validate:"required,min=10"`
	Priority    string `json:"priority"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TicketResponse is a ticket with creator and assignee resolved.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   UserResponse          `json:"created_by"`
	AssignedTo  *UserResponse         `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StatusLogResponse is one entry of a ticket status history.
type StatusLogResponse struct {
	ID        string              `json:"id"`
	TicketID  string              `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy string              `json:"changed_by"`
	ChangedAt time.Time           `json:"changed_at"`
}

// NewTicketResponse maps a ticket view.
func NewTicketResponse(view *domain.TicketView) TicketResponse {
	resp := TicketResponse{
		ID:          view.ID,
		Title:       view.Title,
		Description: view.Description,
		Status:      view.Status,
		Priority:    view.Priority,
		CreatedBy:   NewUserResponse(view.Creator),
		CreatedAt:   view.CreatedAt,
	}
	if view.Assignee != nil {
		assignee := NewUserResponse(*view.Assignee)
		resp.AssignedTo = &assignee
	}
	return resp
}

// NewTicketResponses maps a list of ticket views.
func NewTicketResponses(views []domain.TicketView) []TicketResponse {
	resp := make([]TicketResponse, 0, len(views))
	for i := range views {
		resp = append(resp, NewTicketResponse(&views[i]))
	}
	return resp
}

// NewStatusLogResponses maps a status history.
func NewStatusLogResponses(entries []domain.StatusLog) []StatusLogResponse {
	resp := make([]StatusLogResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, StatusLogResponse{
			ID:        entry.ID,
			TicketID:  entry.TicketID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
		})
	}
	return resp
}
