package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/jobs"
)

// Recorder writes events into audit_logs. It runs in the worker process; the
// API process only ever enqueues.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the event.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: recorder not initialised")
	}
	if event.Action == "" || event.Entity == "" {
		return errors.New("audit: event requires action and entity")
	}
	var details []byte
	if event.Details != nil {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return err
		}
	}
	var actorID, at any
	if event.ActorID > 0 {
		actorID = event.ActorID
	}
	if !event.At.IsZero() {
		at = event.At
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		actorID, event.Action, event.Entity, event.EntityID, details, at)
	return err
}

// Append implements jobs.AuditSink.
func (r *Recorder) Append(ctx context.Context, payload jobs.AuditAppendPayload) error {
	return r.Record(ctx, Event{
		ActorID:  payload.ActorID,
		Action:   payload.Action,
		Entity:   payload.Entity,
		EntityID: payload.EntityID,
		Details:  payload.Details,
		At:       payload.At,
	})
}
