package audit

import (
	"context"
	"log/slog"

	"github.com/facturo/facturo/jobs"
)

// QueueEmitter hands events to the background queue for durable append. A
// queue outage is logged and swallowed so ledger operations never fail on
// account of auditing.
type QueueEmitter struct {
	client *jobs.Client
	logger *slog.Logger
}

// NewQueueEmitter constructs a QueueEmitter.
func NewQueueEmitter(client *jobs.Client, logger *slog.Logger) *QueueEmitter {
	return &QueueEmitter{client: client, logger: logger}
}

// Emit implements Emitter.
func (e *QueueEmitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.client == nil {
		return
	}
	payload := jobs.AuditAppendPayload{
		ActorID:  event.ActorID,
		Action:   event.Action,
		Entity:   event.Entity,
		EntityID: event.EntityID,
		Details:  event.Details,
		At:       event.At,
	}
	if _, err := e.client.EnqueueAuditAppend(ctx, payload); err != nil && e.logger != nil {
		e.logger.Warn("audit enqueue failed",
			slog.String("action", event.Action),
			slog.String("entity", event.Entity),
			slog.Any("error", err))
	}
}
