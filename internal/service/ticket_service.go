package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// TicketService handles ticket creation and reads.
type TicketService struct {
	tickets store.TicketStore
	feed    events.Feed
	now     func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(tickets store.TicketStore, feed events.Feed) *TicketService {
	return &TicketService{tickets: tickets, feed: feed, now: time.Now}
}

// TicketCreateInput describes ticket creation payload. Priority is
// optional; when absent it defaults from the sentiment score, or to
// medium when no score was attached.
type TicketCreateInput struct {
	Subject        string
	Description    string
	Department     domain.Department
	Priority       domain.TicketPriority
	SentimentScore *float64
}

// CreateTicket creates a ticket at version 0, status open, unassigned.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if ownerID == "" {
		return nil, apperrors.NewValidationError("owner required", nil)
	}
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}
	if !domain.ValidDepartment(input.Department) {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": input.Department})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
		if input.SentimentScore != nil {
			priority = domain.PriorityFromSentiment(*input.SentimentScore)
		}
	} else if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		Subject:        subject,
		Description:    description,
		Priority:       priority,
		Department:     input.Department,
		Status:         domain.TicketStatusOpen,
		OwnerID:        ownerID,
		SentimentScore: input.SentimentScore,
		CreatedAt:      s.now(),
		Version:        0,
		Conversation:   []domain.Message{},
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishChange(ctx, s.feed, events.Change{
		Type:     events.ChangeTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.SenderCustomer, ID: ownerID},
		Ticket:   *ticket,
	})
	return ticket, nil
}

// GetTicket fetches a ticket snapshot.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, ticketID)
	}
	return ticket, nil
}

// GetTicketForOwner fetches a ticket ensuring the caller owns it.
func (s *TicketService) GetTicketForOwner(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListTickets returns snapshots matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter store.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}
