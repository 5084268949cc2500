package dto

import (
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject        string                `json:"subject"`
	Description    string                `json:"description"`
	Department     domain.Department     `json:"department"`
	Priority       domain.TicketPriority `json:"priority,omitempty"`
	SentimentScore *float64              `json:"sentiment_score,omitempty"`
}

// ClaimTicketRequest payload. AgentLabel optionally overrides the
// display name carried by the identity token.
type ClaimTicketRequest struct {
	AgentLabel      string `json:"agent_label,omitempty"`
	ObservedVersion int64  `json:"observed_version"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	ObservedVersion int64 `json:"observed_version"`
}

// AppendMessageRequest payload.
type AppendMessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse represents one conversation entry.
type MessageResponse struct {
	Sequence    int               `json:"sequence"`
	Sender      domain.SenderRole `json:"sender"`
	SenderLabel *string           `json:"sender_label,omitempty"`
	Text        string            `json:"text"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TicketResponse provides full ticket info including the conversation.
type TicketResponse struct {
	ID                 string                `json:"id"`
	Subject            string                `json:"subject"`
	Description        string                `json:"description"`
	Priority           domain.TicketPriority `json:"priority"`
	Department         domain.Department     `json:"department"`
	Status             domain.TicketStatus   `json:"status"`
	OwnerID            string                `json:"owner_id"`
	AssignedAgentID    *string               `json:"assigned_agent_id,omitempty"`
	AssignedAgentLabel *string               `json:"assigned_agent_label,omitempty"`
	SentimentScore     *float64              `json:"sentiment_score,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	ResolvedAt         *time.Time            `json:"resolved_at,omitempty"`
	ResolvedByLabel    *string               `json:"resolved_by_label,omitempty"`
	Version            int64                 `json:"version"`
	Conversation       []MessageResponse     `json:"conversation"`
}

// FromTicket maps the aggregate to its API shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	conversation := make([]MessageResponse, 0, len(t.Conversation))
	for i := range t.Conversation {
		conversation = append(conversation, FromMessage(&t.Conversation[i]))
	}
	return TicketResponse{
		ID:                 t.ID,
		Subject:            t.Subject,
		Description:        t.Description,
		Priority:           t.Priority,
		Department:         t.Department,
		Status:             t.Status,
		OwnerID:            t.OwnerID,
		AssignedAgentID:    t.AssignedAgentID,
		AssignedAgentLabel: t.AssignedAgentLabel,
		SentimentScore:     t.SentimentScore,
		CreatedAt:          t.CreatedAt,
		ResolvedAt:         t.ResolvedAt,
		ResolvedByLabel:    t.ResolvedByLabel,
		Version:            t.Version,
		Conversation:       conversation,
	}
}

// FromMessage maps one conversation entry.
func FromMessage(m *domain.Message) MessageResponse {
	return MessageResponse{
		Sequence:    m.Sequence,
		Sender:      m.Sender,
		SenderLabel: m.SenderLabel,
		Text:        m.Text,
		CreatedAt:   m.CreatedAt,
	}
}

// StreamEvent is one SSE payload on a subscription stream.
type StreamEvent struct {
	Kind   string         `json:"kind"`
	Ticket TicketResponse `json:"ticket"`
}
