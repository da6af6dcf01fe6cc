package audit

import (
	"context"
	"time"
)

// Event is an audit record emitted by the ledger after a successful
// operation. Emission is best-effort: an audit sink outage must never block
// or fail the billing operation that produced the event.
type Event struct {
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID int64          `json:"entity_id"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

// Emitter hands events to the audit collaborator. Implementations swallow
// and log their own failures.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NopEmitter discards events. Used in tests.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(context.Context, Event) {}
