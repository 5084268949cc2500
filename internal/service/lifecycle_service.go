package service

import (
	"context"
	"errors"
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// LifecycleService governs status transitions. Claiming moves a ticket
// open -> in_progress (see ClaimService); Resolve moves it
// in_progress -> resolved and only the assignee may trigger it.
// Resolved is terminal.
type LifecycleService struct {
	tickets store.TicketStore
	feed    events.Feed
	now     func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(tickets store.TicketStore, feed events.Feed) *LifecycleService {
	return &LifecycleService{tickets: tickets, feed: feed, now: time.Now}
}

// Resolve moves the ticket to resolved, conditioned on version match,
// status in_progress, and agentID being the assignee. resolvedAt and
// resolvedByLabel are set exactly once and never change afterwards.
// Like Claim, a losing caller is never retried internally.
func (s *LifecycleService) Resolve(ctx context.Context, ticketID, agentID string, observedVersion int64) (*domain.Ticket, error) {
	if agentID == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}

	current, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, ticketID)
	}
	label := agentID
	if current.AssignedAgentLabel != nil {
		label = *current.AssignedAgentLabel
	}

	ticket, err := s.tickets.ApplyResolve(ctx, ticketID, observedVersion, agentID, label, s.now())
	if err == nil {
		publishChange(ctx, s.feed, events.Change{
			Type:     events.ChangeTicketResolved,
			TicketID: ticket.ID,
			Actor:    events.Actor{Role: domain.SenderAgent, ID: agentID, Label: label},
			Ticket:   *ticket,
		})
		return ticket, nil
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		return nil, mapStoreError(err, ticketID)
	}

	current, fetchErr := s.tickets.Get(ctx, ticketID)
	if fetchErr != nil {
		return nil, mapStoreError(fetchErr, ticketID)
	}
	switch {
	case current.Resolved():
		return nil, apperrors.NewConflict(apperrors.CodeAlreadyResolved, "ticket already resolved", current)
	case !current.Assigned() || *current.AssignedAgentID != agentID:
		return nil, apperrors.NewConflict(apperrors.CodeNotAssignee, "only the assigned agent may resolve", current)
	default:
		return nil, apperrors.NewConflict(apperrors.CodeStaleVersion, "observed version is stale", current)
	}
}
