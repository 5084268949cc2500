package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearbridge/support-sync/internal/domain"
)

// MemoryStore is an in-process TicketStore. It backs tests and runs the
// service without a Postgres DSN. Conditional-write semantics are
// identical to the SQL implementation: the condition is evaluated and
// the mutation applied under one lock acquisition.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*domain.Ticket)}
}

func (s *MemoryStore) Insert(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if filter.Matches(ticket) {
			result = append(result, *ticket.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ApplyClaim(ctx context.Context, id string, expectedVersion int64, agentID, agentLabel string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Version != expectedVersion || ticket.Assigned() ||
		!domain.CanTransition(ticket.Status, domain.TicketStatusInProgress) {
		return nil, ErrVersionConflict
	}
	ticket.AssignedAgentID = &agentID
	ticket.AssignedAgentLabel = &agentLabel
	ticket.Status = domain.TicketStatusInProgress
	ticket.Version++
	return ticket.Clone(), nil
}

func (s *MemoryStore) ApplyResolve(ctx context.Context, id string, expectedVersion int64, agentID string, resolvedByLabel string, at time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Version != expectedVersion ||
		!domain.CanTransition(ticket.Status, domain.TicketStatusResolved) ||
		ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != agentID {
		return nil, ErrVersionConflict
	}
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &at
	ticket.ResolvedByLabel = &resolvedByLabel
	ticket.Version++
	return ticket.Clone(), nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, id string, expectedVersion int64, msg domain.Message) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Version != expectedVersion || ticket.Resolved() {
		return nil, ErrVersionConflict
	}
	ticket.Conversation = append(ticket.Conversation, msg)
	ticket.Version++
	return ticket.Clone(), nil
}
