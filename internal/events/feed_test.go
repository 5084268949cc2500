package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbridge/support-sync/internal/domain"
)

func TestFeedDeliversByTypeAndCatchAll(t *testing.T) {
	feed := NewInMemoryFeed()
	ctx := context.Background()

	var claimed, all []Change
	feed.Subscribe(ChangeTicketClaimed, func(ctx context.Context, c Change) error {
		claimed = append(claimed, c)
		return nil
	})
	feed.SubscribeAll(func(ctx context.Context, c Change) error {
		all = append(all, c)
		return nil
	})

	require.NoError(t, feed.Publish(ctx, Change{Type: ChangeTicketCreated, TicketID: "t-1", Ticket: domain.Ticket{ID: "t-1"}}))
	require.NoError(t, feed.Publish(ctx, Change{Type: ChangeTicketClaimed, TicketID: "t-1", Ticket: domain.Ticket{ID: "t-1", Version: 1}}))

	require.Len(t, claimed, 1)
	assert.Equal(t, int64(1), claimed[0].Ticket.Version)
	require.Len(t, all, 2)
	assert.NotEmpty(t, all[0].ID)
}

func TestFeedHandlerErrorDoesNotStopDelivery(t *testing.T) {
	feed := NewInMemoryFeed()
	called := false
	feed.Subscribe(ChangeTicketCreated, func(ctx context.Context, c Change) error {
		return errors.New("boom")
	})
	feed.Subscribe(ChangeTicketCreated, func(ctx context.Context, c Change) error {
		called = true
		return nil
	})

	require.NoError(t, feed.Publish(context.Background(), Change{Type: ChangeTicketCreated, TicketID: "t-1"}))
	assert.True(t, called)
}
