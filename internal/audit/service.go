package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// LogEntry is one row of the durable audit log joined with the actor email.
type LogEntry struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   int64          `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	ActorEmail *string        `json:"actor_email,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RepositoryPort defines data access for reading the audit log.
type RepositoryPort interface {
	ListRecent(ctx context.Context, limit int) ([]LogEntry, error)
}

// Service coordinates audit log reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

const recentLimit = 500

// Recent returns the latest audit entries, newest first. Admin only.
func (s *Service) Recent(ctx context.Context, scope shared.Scope) ([]LogEntry, error) {
	if err := scope.Authorize(shared.CapAuditRead); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListRecent(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("audit: list recent: %w", err)
	}
	return entries, nil
}

// Repository provides PostgreSQL backed reads of audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRecent implements RepositoryPort.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.action, a.entity, COALESCE(a.entity_id, 0), a.details, u.email, a.created_at
		 FROM audit_logs a
		 LEFT JOIN users u ON u.id = a.actor_id
		 ORDER BY a.id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Entity, &entry.EntityID, &details, &entry.ActorEmail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
