package service

import (
	"errors"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// translateStoreError maps repository errors onto the API error taxonomy.
// Domain errors raised inside a transaction pass through unchanged.
func translateStoreError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	}
	return apperrors.NewInternalError(err)
}

func authorize(policy *auth.Policy, actor domain.Actor, op auth.Operation, ownerID string) error {
	if actor.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !policy.IsAllowed(actor, op, ownerID) {
		return apperrors.NewForbidden("not permitted to " + string(op))
	}
	return nil
}
