package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

func TestAddAndListComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, f.user)

	first, err := f.comments.Add(ctx, f.user, ticket.ID, "still broken")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, first.AuthorID)
	assert.Equal(t, f.user.ID, first.Author.ID)

	_, err = f.comments.Add(ctx, f.support, ticket.ID, "looking into it")
	require.NoError(t, err)

	thread, err := f.comments.ListForTicket(ctx, f.user, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "still broken", thread[0].Text)
	assert.Equal(t, "looking into it", thread[1].Text)
	assert.Equal(t, f.support.ID, thread[1].Author.ID)
}

func TestAddCommentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, f.user)

	_, err := f.comments.Add(ctx, f.user, "missing", "hello")
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.comments.Add(ctx, f.user, ticket.ID, "  ")
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.comments.ListForTicket(ctx, f.user, "missing")
	requireCode(t, err, apperrors.CodeNotFound)

	thread, err := f.comments.ListForTicket(ctx, f.user, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestEditCommentOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, f.user)
	comment, err := f.comments.Add(ctx, f.user, ticket.ID, "original")
	require.NoError(t, err)

	_, err = f.comments.Edit(ctx, f.support, comment.ID, "hijacked")
	requireCode(t, err, apperrors.CodeForbidden)

	edited, err := f.comments.Edit(ctx, f.user, comment.ID, "clarified")
	require.NoError(t, err)
	assert.Equal(t, "clarified", edited.Text)
	assert.Equal(t, ticket.ID, edited.TicketID)
	assert.Equal(t, f.user.ID, edited.AuthorID)

	moderated, err := f.comments.Edit(ctx, f.manager, comment.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, moderated.AuthorID)

	_, err = f.comments.Edit(ctx, f.user, "missing", "x")
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.comments.Edit(ctx, f.user, comment.ID, "")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestDeleteCommentOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, f.user)
	mine, err := f.comments.Add(ctx, f.support, ticket.ID, "mine")
	require.NoError(t, err)
	theirs, err := f.comments.Add(ctx, f.user, ticket.ID, "theirs")
	require.NoError(t, err)

	err = f.comments.Delete(ctx, f.support, theirs.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, f.comments.Delete(ctx, f.support, mine.ID))
	require.NoError(t, f.comments.Delete(ctx, f.manager, theirs.ID))

	thread, err := f.comments.ListForTicket(ctx, f.user, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)

	err = f.comments.Delete(ctx, f.manager, mine.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAddCommentByUnknownAuthor(t *testing.T) {
	f := newFixture(t)
	ticket := f.openTicket(t, f.user)
	ghost := domain.Actor{ID: "ghost", Role: domain.RoleUser}

	_, err := f.comments.Add(context.Background(), ghost, ticket.ID, "hello")
	requireCode(t, err, apperrors.CodeNotFound)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "user not found", domainErr.Message)
	assert.Equal(t, "ghost", domainErr.Details["user_id"])
}
