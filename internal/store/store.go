package store

import (
	"context"
	"errors"
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
)

// ErrNotFound indicates the ticket id is unknown to the store.
var ErrNotFound = errors.New("ticket not found")

// ErrVersionConflict indicates a conditional write lost the race: the
// stored version no longer matched the expected one, or the write's
// state precondition (unassigned, in_progress, not resolved) failed.
// The write did not happen. Callers refetch to classify the cause.
var ErrVersionConflict = errors.New("version conflict")

// TicketFilter selects tickets for list reads and predicate
// subscriptions. Nil/empty fields match everything.
type TicketFilter struct {
	Statuses        []domain.TicketStatus
	Department      *domain.Department
	OwnerID         *string
	AssignedAgentID *string
	Unassigned      bool
}

// Matches evaluates the filter against a single ticket.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Department != nil && t.Department != *f.Department {
		return false
	}
	if f.OwnerID != nil && t.OwnerID != *f.OwnerID {
		return false
	}
	if f.Unassigned && t.Assigned() {
		return false
	}
	if f.AssignedAgentID != nil {
		if t.AssignedAgentID == nil || *t.AssignedAgentID != *f.AssignedAgentID {
			return false
		}
	}
	return true
}

// TicketStore is the document-store boundary. Every mutation is a
// minimal conditional write keyed on the version the caller expects;
// the store evaluates the condition atomically and returns
// ErrVersionConflict without side effects when it fails. One write
// commits per version, which linearizes all mutations to a ticket.
type TicketStore interface {
	// Insert persists a new ticket at version 0.
	Insert(ctx context.Context, ticket *domain.Ticket) error

	// Get returns a snapshot of the ticket, conversation included.
	Get(ctx context.Context, id string) (*domain.Ticket, error)

	// List returns snapshots of all tickets matching the filter.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)

	// ApplyClaim assigns the ticket to an agent, conditioned on version
	// match, no current assignee, and a non-terminal status.
	ApplyClaim(ctx context.Context, id string, expectedVersion int64, agentID, agentLabel string) (*domain.Ticket, error)

	// ApplyResolve moves the ticket to resolved, conditioned on version
	// match, status in_progress, and the caller being the assignee.
	ApplyResolve(ctx context.Context, id string, expectedVersion int64, agentID string, resolvedByLabel string, at time.Time) (*domain.Ticket, error)

	// AppendMessage appends one conversation entry, conditioned on
	// version match and a non-terminal status. The message sequence must
	// equal the conversation length observed at expectedVersion.
	AppendMessage(ctx context.Context, id string, expectedVersion int64, msg domain.Message) (*domain.Ticket, error)
}
