package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// ResponderService is the automated third writer: it watches the change
// feed and answers customer messages with a canned reply through the
// same appender every other writer uses, so its entries obey the same
// ordering and lifecycle rules.
type ResponderService struct {
	conversation *ConversationService
	logger       *zap.Logger
	label        string
}

// NewResponderService constructs the responder.
func NewResponderService(conversation *ConversationService, logger *zap.Logger, label string) *ResponderService {
	if label == "" {
		label = "Support Bot"
	}
	return &ResponderService{conversation: conversation, logger: logger, label: label}
}

// RegisterHandlers subscribes the responder to the change feed.
func (r *ResponderService) RegisterHandlers(feed events.Feed) {
	feed.Subscribe(events.ChangeMessageAppended, r.handleMessageAppended)
}

func (r *ResponderService) handleMessageAppended(ctx context.Context, change events.Change) error {
	if change.Message == nil || change.Message.Sender != domain.SenderCustomer {
		return nil
	}
	if change.Ticket.Resolved() {
		return nil
	}

	reply := Reply(change.Message.Text)
	label := r.label
	if _, err := r.conversation.AppendMessage(ctx, change.TicketID, domain.SenderBot, &label, reply); err != nil {
		// A resolve can land between the customer message and our
		// reply; that is expected, everything else is worth a warning.
		if !apperrors.HasCode(err, apperrors.CodeTicketResolved) {
			r.logger.Warn("bot reply failed",
				zap.String("ticket_id", change.TicketID),
				zap.Error(err))
		}
		return err
	}
	return nil
}

// Reply produces the canned response for a customer message.
func Reply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "hello", "hi", "hey"):
		return "Hello! I'm here to help you. How can I assist you today?"
	case containsAny(lower, "password", "login"):
		return "I can help you with login issues. You can reset your password by clicking 'Forgot Password' on the login page."
	case containsAny(lower, "thank", "thanks"):
		return "You're very welcome! Is there anything else I can help you with?"
	default:
		return "I understand your concern. Could you provide more details so I can better assist you?"
	}
}

func containsAny(s string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
