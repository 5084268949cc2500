package domain

// allowedTransitions encodes the ticket state machine. A ticket must be
// claimed before it can be resolved, so open never transitions directly
// to resolved. Resolved is terminal.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {},
}

// CanTransition reports whether moving from current to next is legal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
