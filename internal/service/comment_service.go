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

// CommentService manages ticket threads.
type CommentService struct {
	store  repository.Store
	policy *auth.Policy
	logger *zap.Logger
}

// NewCommentService constructs a CommentService.
func NewCommentService(store repository.Store, policy *auth.Policy, logger *zap.Logger) *CommentService {
	return &CommentService{store: store, policy: policy, logger: logger}
}

func commentNotFound(commentID string) map[string]any {
	return map[string]any{"comment_id": commentID}
}

// Add appends a comment by the actor to the ticket thread.
func (s *CommentService) Add(ctx context.Context, actor domain.Actor, ticketID, text string) (*domain.CommentView, error) {
	if err := authorize(s.policy, actor, auth.OpCommentAdd, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"field": "text"})
	}

	comment := &domain.Comment{TicketID: ticketID, AuthorID: actor.ID, Text: text}
	var view *domain.CommentView
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tickets().GetByID(ctx, ticketID); err != nil {
			return translateStoreError(err, "ticket", ticketNotFound(ticketID))
		}
		// the ticket exists, so a dangling reference can only be the author
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return translateStoreError(err, "user", userNotFound(actor.ID))
		}
		var err error
		view, err = tx.Comments().GetView(ctx, comment.ID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "comment", commentNotFound(comment.ID))
	}

	s.logger.Info("comment added",
		zap.String("comment_id", comment.ID),
		zap.String("ticket_id", ticketID),
		zap.String("author_id", actor.ID),
	)
	return view, nil
}

// Edit replaces the comment text. Only the author or a manager may edit.
func (s *CommentService) Edit(ctx context.Context, actor domain.Actor, commentID, text string) (*domain.CommentView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"field": "text"})
	}

	var view *domain.CommentView
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		comment, err := tx.Comments().GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if err := authorize(s.policy, actor, auth.OpCommentEdit, comment.AuthorID); err != nil {
			return err
		}
		if err := tx.Comments().UpdateText(ctx, commentID, text); err != nil {
			return err
		}
		view, err = tx.Comments().GetView(ctx, commentID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "comment", commentNotFound(commentID))
	}

	s.logger.Info("comment edited", zap.String("comment_id", commentID), zap.String("edited_by", actor.ID))
	return view, nil
}

// Delete removes the comment. Only the author or a manager may delete.
func (s *CommentService) Delete(ctx context.Context, actor domain.Actor, commentID string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		comment, err := tx.Comments().GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if err := authorize(s.policy, actor, auth.OpCommentDelete, comment.AuthorID); err != nil {
			return err
		}
		return tx.Comments().Delete(ctx, commentID)
	})
	if err != nil {
		return translateStoreError(err, "comment", commentNotFound(commentID))
	}

	s.logger.Info("comment deleted", zap.String("comment_id", commentID), zap.String("deleted_by", actor.ID))
	return nil
}

// ListForTicket returns the thread of a ticket, oldest first.
func (s *CommentService) ListForTicket(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.CommentView, error) {
	if err := authorize(s.policy, actor, auth.OpCommentList, ""); err != nil {
		return nil, err
	}
	if _, err := s.store.Tickets().GetByID(ctx, ticketID); err != nil {
		return nil, translateStoreError(err, "ticket", ticketNotFound(ticketID))
	}
	views, err := s.store.Comments().ListViewsByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return views, nil
}
