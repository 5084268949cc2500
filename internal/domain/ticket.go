package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityLow    TicketPriority = "low"
)

// Department enumerates the teams a ticket can be routed to.
type Department string

const (
	DepartmentFinance Department = "Finance"
	DepartmentIT      Department = "IT"
	DepartmentHR      Department = "HR"
	DepartmentSupport Department = "Support"
)

// Ticket is the aggregate for one support case plus its conversation.
// Version is the optimistic-concurrency token: it starts at 0 and
// increases by exactly 1 on every accepted mutation. The store is the
// sole arbiter of version order; command handlers never read-modify-write
// the whole aggregate.
type Ticket struct {
	ID                 string         `json:"id"`
	Subject            string         `json:"subject"`
	Description        string         `json:"description"`
	Priority           TicketPriority `json:"priority"`
	Department         Department     `json:"department"`
	Status             TicketStatus   `json:"status"`
	OwnerID            string         `json:"owner_id"`
	AssignedAgentID    *string        `json:"assigned_agent_id,omitempty"`
	AssignedAgentLabel *string        `json:"assigned_agent_label,omitempty"`
	SentimentScore     *float64       `json:"sentiment_score,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	ResolvedAt         *time.Time     `json:"resolved_at,omitempty"`
	ResolvedByLabel    *string        `json:"resolved_by_label,omitempty"`
	Version            int64          `json:"version"`
	Conversation       []Message      `json:"conversation"`
}

// Assigned reports whether the ticket has been claimed.
func (t *Ticket) Assigned() bool {
	return t.AssignedAgentID != nil && *t.AssignedAgentID != ""
}

// Resolved reports whether the ticket reached its terminal state.
func (t *Ticket) Resolved() bool {
	return t.Status == TicketStatusResolved
}

// Clone returns a deep copy; the conversation slice is never shared.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.Conversation != nil {
		cp.Conversation = make([]Message, len(t.Conversation))
		copy(cp.Conversation, t.Conversation)
	}
	return &cp
}

// ValidDepartment reports whether d is one of the routable departments.
func ValidDepartment(d Department) bool {
	switch d {
	case DepartmentFinance, DepartmentIT, DepartmentHR, DepartmentSupport:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// PriorityFromSentiment derives a default priority from an opaque
// sentiment score using the thresholds the intake pipeline has always
// used. The score itself is otherwise passed through uninterpreted.
func PriorityFromSentiment(score float64) TicketPriority {
	switch {
	case score < -0.3:
		return TicketPriorityHigh
	case score < 0.3:
		return TicketPriorityMedium
	default:
		return TicketPriorityLow
	}
}
