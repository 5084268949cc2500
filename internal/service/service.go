package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// publishChange stamps and publishes one committed mutation on the
// change feed. Services call it only after the store accepted the
// conditional write.
func publishChange(ctx context.Context, feed events.Feed, change events.Change) {
	if feed == nil {
		return
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}
	_ = feed.Publish(ctx, change)
}

func mapStoreError(err error, ticketID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}
