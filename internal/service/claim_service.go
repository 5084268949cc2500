package service

import (
	"context"
	"errors"
	"strings"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/observability"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// ClaimService executes the compare-and-swap protocol that assigns an
// unclaimed ticket to exactly one agent. It never retries: a losing
// caller gets the authoritative current state back and decides whether
// to refetch and re-issue.
type ClaimService struct {
	tickets store.TicketStore
	feed    events.Feed
	metrics *observability.Metrics
}

// NewClaimService constructs the service.
func NewClaimService(tickets store.TicketStore, feed events.Feed, metrics *observability.Metrics) *ClaimService {
	return &ClaimService{tickets: tickets, feed: feed, metrics: metrics}
}

// Claim atomically assigns the ticket to agentID, conditioned on the
// stored version matching observedVersion, no current assignee, and a
// non-terminal status. The store evaluates the whole condition; there
// is no client-side check-then-write window. At most one claim ever
// succeeds per ticket.
func (s *ClaimService) Claim(ctx context.Context, ticketID, agentID, agentLabel string, observedVersion int64) (*domain.Ticket, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}
	if strings.TrimSpace(agentLabel) == "" {
		return nil, apperrors.NewValidationError("agent label required", nil)
	}

	ticket, err := s.tickets.ApplyClaim(ctx, ticketID, observedVersion, agentID, agentLabel)
	if err == nil {
		publishChange(ctx, s.feed, events.Change{
			Type:     events.ChangeTicketClaimed,
			TicketID: ticket.ID,
			Actor:    events.Actor{Role: domain.SenderAgent, ID: agentID, Label: agentLabel},
			Ticket:   *ticket,
		})
		return ticket, nil
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		return nil, mapStoreError(err, ticketID)
	}

	s.metrics.RecordClaimConflict()
	current, fetchErr := s.tickets.Get(ctx, ticketID)
	if fetchErr != nil {
		return nil, mapStoreError(fetchErr, ticketID)
	}
	if current.Assigned() {
		return nil, apperrors.NewConflict(apperrors.CodeAlreadyClaimed, "ticket already claimed", current)
	}
	return nil, apperrors.NewConflict(apperrors.CodeStaleVersion, "observed version is stale", current)
}
