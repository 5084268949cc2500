package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbridge/support-sync/internal/domain"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

func TestResolveByAssignee(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.createTicket(t, "customer-1")

	claimed, err := f.claims.Claim(ctx, ticket.ID, "agent-1", "Ana", 0)
	require.NoError(t, err)

	resolved, err := f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", claimed.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, int64(2), resolved.Version)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedByLabel)
	assert.Equal(t, "Ana", *resolved.ResolvedByLabel)
}

func TestResolveUnclaimedTicketFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.createTicket(t, "customer-1")

	_, err := f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotAssignee))
}

func TestResolveByNonAssigneeFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.createTicket(t, "customer-1")

	_, err := f.claims.Claim(ctx, ticket.ID, "agent-1", "Ana", 0)
	require.NoError(t, err)

	_, err = f.lifecycle.Resolve(ctx, ticket.ID, "agent-2", 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotAssignee))
}

func TestResolveStaleVersion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.createTicket(t, "customer-1")

	_, err := f.claims.Claim(ctx, ticket.ID, "agent-1", "Ana", 0)
	require.NoError(t, err)

	// The assignee observes version 1, but an append lands first.
	_, err = f.conversation.AppendMessage(ctx, ticket.ID, domain.SenderCustomer, nil, "any update?")
	require.NoError(t, err)

	_, err = f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", 1)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStaleVersion))

	// Re-issuing with the refreshed version succeeds.
	domainErr := apperrors.ToDomainError(err)
	current := domainErr.Details["current"].(*domain.Ticket)
	resolved, err := f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", current.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
}

func TestResolveIsTerminalAndImmutable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.createTicket(t, "customer-1")

	_, err := f.claims.Claim(ctx, ticket.ID, "agent-1", "Ana", 0)
	require.NoError(t, err)
	resolved, err := f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", 1)
	require.NoError(t, err)

	_, err = f.lifecycle.Resolve(ctx, ticket.ID, "agent-1", resolved.Version)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyResolved))

	current, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, current.ResolvedAt.Equal(*resolved.ResolvedAt))
	assert.Equal(t, *resolved.ResolvedByLabel, *current.ResolvedByLabel)
	assert.Equal(t, resolved.Version, current.Version)
}
