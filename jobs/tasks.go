package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditAppend is the task type for durable audit log writes.
	TaskTypeAuditAppend = "audit:append"
)

// AuditAppendPayload carries one audit event to the worker.
type AuditAppendPayload struct {
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID int64          `json:"entity_id"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

// NewAuditAppendTask constructs an Asynq task.
func NewAuditAppendTask(payload AuditAppendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditAppend, data), nil
}

// AuditSink persists audit events durably.
type AuditSink interface {
	Append(ctx context.Context, payload AuditAppendPayload) error
}

// NewAuditAppendHandler processes TaskTypeAuditAppend tasks against the sink.
func NewAuditAppendHandler(sink AuditSink) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditAppendPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return sink.Append(ctx, payload)
	}
}
