package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbridge/support-sync/internal/domain"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// TestTicketLifecycleEndToEnd walks one ticket through its full life:
// two agents race for the claim, both sides of the conversation append,
// the assignee resolves, and the terminal state rejects late writes.
func TestTicketLifecycleEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ticket := f.createTicket(t, "customer-1")
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, int64(0), ticket.Version)
	assert.Empty(t, ticket.Conversation)

	// Agent A wins the claim at the version both agents observed.
	claimed, err := f.claims.Claim(ctx, ticket.ID, "agent-a", "Ana", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
	assert.Equal(t, int64(1), claimed.Version)

	// Agent B loses and learns who holds the ticket.
	_, err = f.claims.Claim(ctx, ticket.ID, "agent-b", "Ben", 0)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyClaimed))
	current := apperrors.ToDomainError(err).Details["current"].(*domain.Ticket)
	assert.Equal(t, "agent-a", *current.AssignedAgentID)

	first, err := f.conversation.AppendMessage(ctx, ticket.ID, domain.SenderAgent, strptr("Ana"), "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Sequence)

	second, err := f.conversation.AppendMessage(ctx, ticket.ID, domain.SenderCustomer, nil, "thanks")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Sequence)

	afterChat, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), afterChat.Version)

	resolved, err := f.lifecycle.Resolve(ctx, ticket.ID, "agent-a", 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, int64(4), resolved.Version)

	_, err = f.conversation.AppendMessage(ctx, ticket.ID, domain.SenderCustomer, nil, "one more thing")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketResolved))

	final, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, final.Conversation, 2)
	assert.Equal(t, "hello", final.Conversation[0].Text)
	assert.Equal(t, "thanks", final.Conversation[1].Text)
}
