package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// TicketService coordinates ticket use cases.
type TicketService struct {
	store  repository.Store
	policy *auth.Policy
	logger *zap.Logger
}

// TicketCreateInput captures the fields of a new ticket.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
}

// NewTicketService constructs a TicketService.
func NewTicketService(store repository.Store, policy *auth.Policy, logger *zap.Logger) *TicketService {
	return &TicketService{store: store, policy: policy, logger: logger}
}

func ticketNotFound(ticketID string) map[string]any {
	return map[string]any{"ticket_id": ticketID}
}

func userNotFound(userID string) map[string]any {
	return map[string]any{"user_id": userID}
}

// Create opens a ticket on behalf of the actor.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.TicketView, error) {
	if err := authorize(s.policy, actor, auth.OpTicketCreate, ""); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := domain.DefaultTicketPriority
	if input.Priority != "" {
		priority = domain.TicketPriority(strings.ToUpper(strings.TrimSpace(input.Priority)))
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
		}
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: input.Description,
		Status:      domain.DefaultTicketStatus,
		Priority:    priority,
		CreatedBy:   actor.ID,
	}

	var view *domain.TicketView
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return translateStoreError(err, "user", userNotFound(actor.ID))
		}
		var err error
		view, err = tx.Tickets().GetView(ctx, ticket.ID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "ticket", ticketNotFound(ticket.ID))
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("created_by", actor.ID),
		zap.String("priority", string(priority)),
	)
	return view, nil
}

// UpdateStatus moves the ticket to status and appends one status log entry.
// Both writes happen in one transaction while the ticket row is locked.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, status domain.TicketStatus) (*domain.TicketView, error) {
	if err := authorize(s.policy, actor, auth.OpTicketUpdateStatus, ""); err != nil {
		return nil, err
	}
	status = domain.TicketStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
	}

	var (
		view      *domain.TicketView
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		if oldStatus == "" {
			oldStatus = domain.TicketStatusUnavailable
		}

		if err := tx.Tickets().UpdateStatus(ctx, ticketID, status); err != nil {
			return err
		}
		entry := &domain.StatusLog{
			TicketID:  ticketID,
			OldStatus: oldStatus,
			NewStatus: status,
			ChangedBy: actor.ID,
		}
		if err := tx.StatusLogs().Append(ctx, entry); err != nil {
			return err
		}

		view, err = tx.Tickets().GetView(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "ticket", ticketNotFound(ticketID))
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(status)),
		zap.String("changed_by", actor.ID),
	)
	return view, nil
}

// Assign points the ticket at an existing user. Assignment is not audited.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, targetUserID string) (*domain.TicketView, error) {
	if err := authorize(s.policy, actor, auth.OpTicketAssign, ""); err != nil {
		return nil, err
	}
	targetUserID = strings.TrimSpace(targetUserID)

	var view *domain.TicketView
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tickets().GetForUpdate(ctx, ticketID); err != nil {
			return err
		}
		exists := false
		if targetUserID != "" {
			var err error
			if exists, err = tx.Users().Exists(ctx, targetUserID); err != nil {
				return err
			}
		}
		if !exists {
			return apperrors.NewValidationError("target user does not exist", map[string]any{"user_id": targetUserID})
		}
		if err := tx.Tickets().UpdateAssignee(ctx, ticketID, domain.SomeID(targetUserID)); err != nil {
			return err
		}
		var err error
		view, err = tx.Tickets().GetView(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "ticket", ticketNotFound(ticketID))
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("assigned_to", targetUserID),
		zap.String("assigned_by", actor.ID),
	)
	return view, nil
}

// Delete removes the ticket with its comments and status history.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	if err := authorize(s.policy, actor, auth.OpTicketDelete, ""); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Tickets().Delete(ctx, ticketID)
	})
	if err != nil {
		return translateStoreError(err, "ticket", ticketNotFound(ticketID))
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("deleted_by", actor.ID))
	return nil
}

// List returns every ticket with creator and assignee resolved.
func (s *TicketService) List(ctx context.Context, actor domain.Actor) ([]domain.TicketView, error) {
	if err := authorize(s.policy, actor, auth.OpTicketList, ""); err != nil {
		return nil, err
	}
	views, err := s.store.Tickets().ListViews(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return views, nil
}

// History returns the status log of a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.StatusLog, error) {
	if err := authorize(s.policy, actor, auth.OpTicketHistory, ""); err != nil {
		return nil, err
	}
	if _, err := s.store.Tickets().GetByID(ctx, ticketID); err != nil {
		return nil, translateStoreError(err, "ticket", ticketNotFound(ticketID))
	}
	entries, err := s.store.StatusLogs().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}
