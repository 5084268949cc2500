// Package feed relays committed ticket changes between service
// instances over redis pub/sub, so a dashboard subscribed on one
// instance observes writes committed through another.
package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clearbridge/support-sync/internal/events"
)

// Relay bridges the local change feed and a redis channel. Outbound:
// every locally committed change is published to the channel. Inbound:
// changes published by other instances are handed to the sink (the
// fan-out router), which discards stale versions on its own, so
// redelivery and reordering on the wire are harmless.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	sink    events.ChangeHandler
	logger  *zap.Logger
}

// NewRelay constructs a relay. origin must be unique per process; the
// relay uses it to skip its own traffic when it arrives back.
func NewRelay(client *redis.Client, channel, origin string, sink events.ChangeHandler, logger *zap.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		origin:  origin,
		sink:    sink,
		logger:  logger,
	}
}

// RegisterHandlers wires the outbound direction onto the local feed.
func (r *Relay) RegisterHandlers(localFeed events.Feed) {
	localFeed.SubscribeAll(r.publishOutbound)
}

func (r *Relay) publishOutbound(ctx context.Context, change events.Change) error {
	if change.Origin == "" {
		change.Origin = r.origin
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("relay publish failed", zap.Error(err))
		return err
	}
	return nil
}

// Run consumes the redis channel until ctx is cancelled, delivering
// changes from other instances to the sink.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change events.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.logger.Warn("relay received malformed change", zap.Error(err))
				continue
			}
			if change.Origin == r.origin {
				continue
			}
			if err := r.sink(ctx, change); err != nil {
				r.logger.Warn("relay sink rejected change",
					zap.String("ticket_id", change.TicketID),
					zap.Error(err))
			}
		}
	}
}
