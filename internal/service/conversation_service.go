package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/observability"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// ConversationService performs order-preserving append of chat entries
// from any writer. Append is the one command allowed to retry
// internally: it is commutative across senders as long as the store
// serializes the order, so losing a version race just means re-reading
// the current length and re-issuing the conditional append. Each
// append is its own atomic conditional write; no client-held snapshot
// of the conversation is ever written back.
type ConversationService struct {
	tickets     store.TicketStore
	feed        events.Feed
	metrics     *observability.Metrics
	maxAttempts int
	now         func() time.Time
}

// NewConversationService constructs the service. maxAttempts bounds the
// retry loop; values below 1 fall back to a single attempt.
func NewConversationService(tickets store.TicketStore, feed events.Feed, metrics *observability.Metrics, maxAttempts int) *ConversationService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ConversationService{
		tickets:     tickets,
		feed:        feed,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// AppendMessage appends one conversation entry. Sequence and timestamp
// are assigned here at accept time, never by the client; sequence
// equals the conversation length at the version the append committed
// against, which keeps the run contiguous from 0 with no gaps or
// duplicates. Appends to resolved tickets are rejected for every
// sender, bot included.
func (s *ConversationService) AppendMessage(ctx context.Context, ticketID string, sender domain.SenderRole, senderLabel *string, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("message text required", nil)
	}
	if !domain.ValidSender(sender) {
		return nil, apperrors.NewValidationError("unknown sender role", map[string]any{"sender": sender})
	}
	if sender == domain.SenderAgent && (senderLabel == nil || strings.TrimSpace(*senderLabel) == "") {
		return nil, apperrors.NewValidationError("agent messages require a sender label", nil)
	}

	var current *domain.Ticket
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ticket, err := s.tickets.Get(ctx, ticketID)
		if err != nil {
			return nil, mapStoreError(err, ticketID)
		}
		if ticket.Resolved() {
			return nil, apperrors.NewConflict(apperrors.CodeTicketResolved, "ticket is resolved", ticket)
		}
		current = ticket

		msg := domain.Message{
			Sequence:    len(ticket.Conversation),
			Sender:      sender,
			SenderLabel: senderLabel,
			Text:        text,
			CreatedAt:   s.now(),
		}
		updated, err := s.tickets.AppendMessage(ctx, ticketID, ticket.Version, msg)
		if err == nil {
			publishChange(ctx, s.feed, events.Change{
				Type:     events.ChangeMessageAppended,
				TicketID: updated.ID,
				Actor:    actorForSender(sender, senderLabel),
				Ticket:   *updated,
				Message:  &msg,
			})
			return &msg, nil
		}
		if errors.Is(err, store.ErrVersionConflict) {
			// Retry only on version conflict; anything else surfaces.
			s.metrics.RecordAppendRetry()
			continue
		}
		return nil, mapStoreError(err, ticketID)
	}

	s.metrics.RecordAppendExhausted()
	return nil, apperrors.NewContention("append retry budget exhausted", current)
}

func actorForSender(sender domain.SenderRole, label *string) events.Actor {
	actor := events.Actor{Role: sender}
	if label != nil {
		actor.Label = *label
	}
	return actor
}
