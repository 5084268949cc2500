package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		current TicketStatus
		next    TicketStatus
		want    bool
	}{
		{name: "open to in_progress", current: TicketStatusOpen, next: TicketStatusInProgress, want: true},
		{name: "in_progress to resolved", current: TicketStatusInProgress, next: TicketStatusResolved, want: true},
		{name: "open to resolved requires claim first", current: TicketStatusOpen, next: TicketStatusResolved, want: false},
		{name: "resolved is terminal", current: TicketStatusResolved, next: TicketStatusInProgress, want: false},
		{name: "resolved never reopens", current: TicketStatusResolved, next: TicketStatusOpen, want: false},
		{name: "in_progress cannot reopen", current: TicketStatusInProgress, next: TicketStatusOpen, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.current, tt.next))
		})
	}
}

func TestPriorityFromSentiment(t *testing.T) {
	assert.Equal(t, TicketPriorityHigh, PriorityFromSentiment(-0.8))
	assert.Equal(t, TicketPriorityMedium, PriorityFromSentiment(-0.3))
	assert.Equal(t, TicketPriorityMedium, PriorityFromSentiment(0.0))
	assert.Equal(t, TicketPriorityLow, PriorityFromSentiment(0.3))
	assert.Equal(t, TicketPriorityLow, PriorityFromSentiment(0.9))
}

func TestTicketClone(t *testing.T) {
	agent := "agent-1"
	ticket := &Ticket{
		ID:              "t-1",
		AssignedAgentID: &agent,
		Conversation:    []Message{{Sequence: 0, Sender: SenderCustomer, Text: "hi"}},
	}
	clone := ticket.Clone()
	clone.Conversation[0].Text = "changed"
	clone.Conversation = append(clone.Conversation, Message{Sequence: 1})

	assert.Equal(t, "hi", ticket.Conversation[0].Text)
	assert.Len(t, ticket.Conversation, 1)
}
