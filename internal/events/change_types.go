package events

import (
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
)

// ChangeType enumerates accepted mutations on the ticket aggregate.
type ChangeType string

const (
	ChangeTicketCreated   ChangeType = "ticket_created"
	ChangeTicketClaimed   ChangeType = "ticket_claimed"
	ChangeTicketResolved  ChangeType = "ticket_resolved"
	ChangeMessageAppended ChangeType = "message_appended"
)

// Actor identifies who triggered a mutation.
type Actor struct {
	Role  domain.SenderRole `json:"role"`
	ID    string            `json:"id,omitempty"`
	Label string            `json:"label,omitempty"`
}

// Change is one committed mutation, carrying the full updated aggregate.
// It is published after the store accepts the conditional write, so the
// embedded Ticket.Version reflects the commit. Origin names the process
// that committed the change; the cross-instance relay uses it to avoid
// republishing its own traffic.
type Change struct {
	ID        string          `json:"id"`
	Type      ChangeType      `json:"type"`
	TicketID  string          `json:"ticket_id"`
	Actor     Actor           `json:"actor"`
	Ticket    domain.Ticket   `json:"ticket"`
	Message   *domain.Message `json:"message,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
