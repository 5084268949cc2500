package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/observability"
	"github.com/clearbridge/support-sync/internal/store"
)

// Kind distinguishes notification payloads.
type Kind string

const (
	// KindSnapshot is the full current state sent when a subscription
	// starts, before any incremental update.
	KindSnapshot Kind = "snapshot"
	// KindUpsert is an updated aggregate that (still) matches the
	// subscription.
	KindUpsert Kind = "upsert"
	// KindRemoved signals that the ticket no longer matches a predicate
	// subscription. The carried ticket is the state that stopped
	// matching, so subscribers see the updated snapshot with the notice.
	KindRemoved Kind = "removed"
)

// Notification is one delivery to a subscriber.
type Notification struct {
	Kind   Kind          `json:"kind"`
	Ticket domain.Ticket `json:"ticket"`
}

// SnapshotFunc reads the current state of one ticket.
type SnapshotFunc func(ctx context.Context, ticketID string) (*domain.Ticket, error)

// ListFunc reads the current state of all tickets matching a filter.
type ListFunc func(ctx context.Context, filter store.TicketFilter) ([]domain.Ticket, error)

// Router fans committed changes out to by-id and by-predicate
// subscribers. Delivery to a given subscriber is order-preserving per
// ticket: a notification whose version is not strictly greater than the
// last delivered version for that subscriber/ticket pair is discarded.
type Router struct {
	mu       sync.Mutex
	logger   *zap.Logger
	metrics  *observability.Metrics
	snapshot SnapshotFunc
	list     ListFunc
	buffer   int

	ticketSubs map[string]map[string]*Subscription
	querySubs  map[string]*Subscription
	closed     bool
}

// Config bundles router dependencies.
type Config struct {
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Snapshot SnapshotFunc
	List     ListFunc
	// Buffer is the per-subscriber channel capacity. A subscriber that
	// falls this far behind is evicted rather than allowed to stall
	// delivery to everyone else.
	Buffer int
}

// NewRouter constructs the router and registers nothing; wire it to a
// feed with Router.OnChange.
func NewRouter(cfg Config) *Router {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:     logger,
		metrics:    cfg.Metrics,
		snapshot:   cfg.Snapshot,
		list:       cfg.List,
		buffer:     buffer,
		ticketSubs: make(map[string]map[string]*Subscription),
		querySubs:  make(map[string]*Subscription),
	}
}

// Subscription is one registered observer. Notifications arrive on
// Events; Close is idempotent and never races an in-flight delivery.
type Subscription struct {
	id       string
	router   *Router
	ticketID string
	filter   *store.TicketFilter

	ch        chan Notification
	delivered map[string]int64
	closed    bool
}

// ID returns the subscription identity.
func (s *Subscription) ID() string {
	return s.id
}

// Events is the delivery channel. It is closed when the subscription
// ends, whether by Close or by slow-consumer eviction.
func (s *Subscription) Events() <-chan Notification {
	return s.ch
}

// Close deregisters the subscription and closes the delivery channel.
// Calling it more than once is harmless. In-flight conditional writes
// are unaffected.
func (s *Subscription) Close() {
	s.router.mu.Lock()
	defer s.router.mu.Unlock()
	s.router.closeLocked(s)
}

// SubscribeTicket registers a by-id subscription. The snapshot read and
// the registration happen under the router lock, so the initial
// snapshot is enqueued before any later delta and there is no gap
// between snapshot and first incremental update.
func (r *Router) SubscribeTicket(ctx context.Context, ticketID string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRouterClosed
	}

	current, err := r.snapshot(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	sub := r.newSubscription()
	sub.ticketID = ticketID
	subs, ok := r.ticketSubs[ticketID]
	if !ok {
		subs = make(map[string]*Subscription)
		r.ticketSubs[ticketID] = subs
	}
	subs[sub.id] = sub

	r.deliverLocked(sub, KindSnapshot, *current)
	return sub, nil
}

// SubscribeQuery registers a by-predicate subscription. Current matches
// are delivered as snapshots before any delta, under the same no-gap
// guarantee as SubscribeTicket.
func (r *Router) SubscribeQuery(ctx context.Context, filter store.TicketFilter) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRouterClosed
	}

	matches, err := r.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := r.newSubscription()
	sub.filter = &filter
	r.querySubs[sub.id] = sub

	for i := range matches {
		r.deliverLocked(sub, KindSnapshot, matches[i])
	}
	return sub, nil
}

// OnChange routes one committed change to all interested subscribers.
// Wire it to the change feed with Feed.SubscribeAll.
func (r *Router) OnChange(ctx context.Context, change events.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	for _, sub := range r.ticketSubs[change.TicketID] {
		r.deliverLocked(sub, KindUpsert, change.Ticket)
	}

	for _, sub := range r.querySubs {
		matches := sub.filter.Matches(&change.Ticket)
		_, seen := sub.delivered[change.TicketID]
		switch {
		case matches:
			r.deliverLocked(sub, KindUpsert, change.Ticket)
		case seen:
			// The ticket left the predicate's match set (for example a
			// claim moved it out of an "unassigned" view). The removal
			// carries the updated snapshot.
			if r.deliverLocked(sub, KindRemoved, change.Ticket) {
				delete(sub.delivered, change.TicketID)
			}
		}
	}
	return nil
}

// Close tears down every subscription. Further Subscribe calls fail.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, subs := range r.ticketSubs {
		for _, sub := range subs {
			r.closeLocked(sub)
		}
	}
	for _, sub := range r.querySubs {
		r.closeLocked(sub)
	}
}

func (r *Router) newSubscription() *Subscription {
	return &Subscription{
		id:        uuid.NewString(),
		router:    r,
		ch:        make(chan Notification, r.buffer),
		delivered: make(map[string]int64),
	}
}

// deliverLocked enqueues one notification, enforcing per-ticket version
// monotonicity for the subscriber. Returns true when the notification
// was accepted (even if the subscriber was then evicted for lagging).
func (r *Router) deliverLocked(sub *Subscription, kind Kind, ticket domain.Ticket) bool {
	if sub.closed {
		return false
	}
	if last, seen := sub.delivered[ticket.ID]; seen && ticket.Version <= last {
		r.metrics.RecordStaleDrop()
		return false
	}
	select {
	case sub.ch <- Notification{Kind: kind, Ticket: ticket}:
		sub.delivered[ticket.ID] = ticket.Version
		r.metrics.RecordDelivery(string(kind))
		return true
	default:
		r.logger.Warn("evicting lagging subscriber",
			zap.String("subscription_id", sub.id),
			zap.String("ticket_id", ticket.ID))
		r.metrics.RecordEviction()
		r.closeLocked(sub)
		return false
	}
}

func (r *Router) closeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	if sub.ticketID != "" {
		if subs, ok := r.ticketSubs[sub.ticketID]; ok {
			delete(subs, sub.id)
			if len(subs) == 0 {
				delete(r.ticketSubs, sub.ticketID)
			}
		}
	} else {
		delete(r.querySubs, sub.id)
	}
	close(sub.ch)
}
