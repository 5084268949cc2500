package domain

import "time"

// SenderRole indicates who authored a conversation entry.
type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderAgent    SenderRole = "agent"
	SenderBot      SenderRole = "bot"
)

// Message is one entry in a ticket conversation. Sequence and CreatedAt
// are assigned by the appender at accept time, never by the client.
// Sequence values form a contiguous ascending run starting at 0.
type Message struct {
	Sequence    int        `json:"sequence"`
	Sender      SenderRole `json:"sender"`
	SenderLabel *string    `json:"sender_label,omitempty"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ValidSender reports whether r is a known writer role.
func ValidSender(r SenderRole) bool {
	switch r {
	case SenderCustomer, SenderAgent, SenderBot:
		return true
	}
	return false
}
