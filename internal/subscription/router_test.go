package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/store"
)

type routerFixture struct {
	store  *store.MemoryStore
	router *Router
}

func newRouterFixture(t *testing.T, buffer int) *routerFixture {
	t.Helper()
	s := store.NewMemoryStore()
	r := NewRouter(Config{
		Snapshot: s.Get,
		List:     s.List,
		Buffer:   buffer,
	})
	t.Cleanup(r.Close)
	return &routerFixture{store: s, router: r}
}

func (f *routerFixture) seed(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		ID:          id,
		Subject:     "vpn drops every hour",
		Description: "started after the last update",
		Priority:    domain.TicketPriorityMedium,
		Department:  domain.DepartmentIT,
		Status:      domain.TicketStatusOpen,
		OwnerID:     "customer-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.Insert(context.Background(), ticket))
	return ticket
}

// change wraps a ticket state into the feed event OnChange consumes.
func change(ticket *domain.Ticket) events.Change {
	return events.Change{
		Type:     events.ChangeTicketClaimed,
		TicketID: ticket.ID,
		Ticket:   *ticket,
	}
}

func recv(t *testing.T, sub *Subscription) Notification {
	t.Helper()
	select {
	case n, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("no notification within deadline")
		return Notification{}
	}
}

func assertNoNotification(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case n := <-sub.Events():
		t.Fatalf("unexpected notification: %+v", n)
	default:
	}
}

func TestSubscribeTicketSnapshotFirst(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)
	defer sub.Close()

	first := recv(t, sub)
	assert.Equal(t, KindSnapshot, first.Kind)
	assert.Equal(t, "t-1", first.Ticket.ID)
	assert.Equal(t, int64(0), first.Ticket.Version)

	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))

	next := recv(t, sub)
	assert.Equal(t, KindUpsert, next.Kind)
	assert.Equal(t, int64(1), next.Ticket.Version)
}

func TestSubscribeTicketUnknownID(t *testing.T) {
	f := newRouterFixture(t, 8)
	_, err := f.router.SubscribeTicket(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeliveryIsMonotonicPerTicket(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)
	defer sub.Close()
	recv(t, sub) // snapshot at version 0

	v1, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)
	v2, err := f.store.AppendMessage(ctx, ticket.ID, 1, domain.Message{Sequence: 0, Sender: domain.SenderAgent, Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, f.router.OnChange(ctx, change(v2)))
	// A late relay of the older state must be dropped, not delivered out
	// of order.
	require.NoError(t, f.router.OnChange(ctx, change(v1)))
	require.NoError(t, f.router.OnChange(ctx, change(v2)))

	got := recv(t, sub)
	assert.Equal(t, int64(2), got.Ticket.Version)
	assertNoNotification(t, sub)
}

func TestQuerySubscriptionRemovalNotice(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	unassigned, err := f.router.SubscribeQuery(ctx, store.TicketFilter{Unassigned: true})
	require.NoError(t, err)
	defer unassigned.Close()

	agentID := "agent-1"
	mine, err := f.router.SubscribeQuery(ctx, store.TicketFilter{AssignedAgentID: &agentID})
	require.NoError(t, err)
	defer mine.Close()

	snap := recv(t, unassigned)
	assert.Equal(t, KindSnapshot, snap.Kind)
	assert.Equal(t, "t-1", snap.Ticket.ID)
	// The ticket is unclaimed, so the assignee view starts empty.
	assertNoNotification(t, mine)

	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, agentID, "Ana")
	require.NoError(t, err)
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))

	removed := recv(t, unassigned)
	assert.Equal(t, KindRemoved, removed.Kind)
	assert.Equal(t, int64(1), removed.Ticket.Version)
	require.NotNil(t, removed.Ticket.AssignedAgentID)

	gained := recv(t, mine)
	assert.Equal(t, KindUpsert, gained.Kind)
	assert.Equal(t, "t-1", gained.Ticket.ID)
}

func TestQuerySubscriptionIgnoresUnseenNonMatches(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")
	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)

	sub, err := f.router.SubscribeQuery(ctx, store.TicketFilter{Unassigned: true})
	require.NoError(t, err)
	defer sub.Close()

	// Never matched, never delivered: an update keeps it invisible.
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))
	assertNoNotification(t, sub)
}

func TestLateSubscriberSnapshotHasNoGap(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)
	defer sub.Close()

	snap := recv(t, sub)
	assert.Equal(t, KindSnapshot, snap.Kind)
	assert.Equal(t, int64(1), snap.Ticket.Version)

	// Replaying the change the snapshot already covers delivers nothing.
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))
	assertNoNotification(t, sub)
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	f := newRouterFixture(t, 1)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)

	// The snapshot fills the whole buffer; the next delivery overflows
	// and evicts the subscriber instead of blocking the router.
	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))

	snap := recv(t, sub)
	assert.Equal(t, KindSnapshot, snap.Kind)
	_, ok := <-sub.Events()
	assert.False(t, ok, "channel should be closed after eviction")

	// Close after eviction is a no-op.
	sub.Close()
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	// Deliveries after close are dropped without panicking.
	claimed, err := f.store.ApplyClaim(ctx, ticket.ID, 0, "agent-1", "Ana")
	require.NoError(t, err)
	require.NoError(t, f.router.OnChange(ctx, change(claimed)))
}

func TestRouterCloseRejectsNewSubscriptions(t *testing.T) {
	f := newRouterFixture(t, 8)
	ctx := context.Background()
	ticket := f.seed(t, "t-1")

	sub, err := f.router.SubscribeTicket(ctx, ticket.ID)
	require.NoError(t, err)
	recv(t, sub)

	f.router.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = f.router.SubscribeTicket(ctx, ticket.ID)
	assert.ErrorIs(t, err, ErrRouterClosed)
	_, err = f.router.SubscribeQuery(ctx, store.TicketFilter{})
	assert.ErrorIs(t, err, ErrRouterClosed)
}
