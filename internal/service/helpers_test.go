package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/observability"
	"github.com/clearbridge/support-sync/internal/store"
)

type fixture struct {
	store        store.TicketStore
	feed         events.Feed
	metrics      *observability.Metrics
	tickets      *TicketService
	claims       *ClaimService
	lifecycle    *LifecycleService
	conversation *ConversationService
	logger       *zap.Logger
}

// newFixture wires the services against the in-memory store. The
// responder is not registered; tests that need it do so explicitly.
func newFixture() *fixture {
	ticketStore := store.NewMemoryStore()
	changeFeed := events.NewInMemoryFeed()
	metrics := observability.NewMetrics()
	return &fixture{
		store:        ticketStore,
		feed:         changeFeed,
		metrics:      metrics,
		tickets:      NewTicketService(ticketStore, changeFeed),
		claims:       NewClaimService(ticketStore, changeFeed, metrics),
		lifecycle:    NewLifecycleService(ticketStore, changeFeed),
		conversation: NewConversationService(ticketStore, changeFeed, metrics, 100),
		logger:       zap.NewNop(),
	}
}

func (f *fixture) createTicket(t *testing.T, ownerID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), ownerID, TicketCreateInput{
		Subject:     "cannot log in",
		Description: "password reset loops forever",
		Department:  domain.DepartmentIT,
	})
	require.NoError(t, err)
	return ticket
}

func strptr(s string) *string {
	return &s
}

// conflictingStore always rejects appends with a version conflict, to
// exercise the bounded retry budget.
type conflictingStore struct {
	store.TicketStore
}

func (s *conflictingStore) AppendMessage(ctx context.Context, id string, expectedVersion int64, msg domain.Message) (*domain.Ticket, error) {
	return nil, store.ErrVersionConflict
}
