package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/shared"
)

// Service handles client business logic.
type Service struct {
	repo    RepositoryPort
	emitter audit.Emitter
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, emitter audit.Emitter) *Service {
	if emitter == nil {
		emitter = audit.NopEmitter{}
	}
	return &Service{repo: repo, emitter: emitter}
}

// List returns all clients. Staff only.
func (s *Service) List(ctx context.Context, scope shared.Scope) ([]Client, error) {
	if err := scope.Authorize(shared.CapClientRead); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Search matches clients by name or email.
func (s *Service) Search(ctx context.Context, scope shared.Scope, text string) ([]Client, error) {
	if err := scope.Authorize(shared.CapClientRead); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, text)
}

// Create registers a new client. Any staff role may create.
func (s *Service) Create(ctx context.Context, scope shared.Scope, input ClientInput) (*Client, error) {
	if err := scope.Authorize(shared.CapClientCreate); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	client, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "create",
		Entity:   "client",
		EntityID: client.ID,
		Details:  map[string]any{"name": client.Name},
		At:       time.Now(),
	})
	return client, nil
}

// Update rewrites an existing client.
func (s *Service) Update(ctx context.Context, scope shared.Scope, id int64, input ClientInput) (*Client, error) {
	if err := scope.Authorize(shared.CapClientUpdate); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	client, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "update",
		Entity:   "client",
		EntityID: id,
		At:       time.Now(),
	})
	return client, nil
}

// Delete removes a client. A client referenced by any invoice, archived
// included, cannot be deleted.
func (s *Service) Delete(ctx context.Context, scope shared.Scope, id int64) error {
	if err := scope.Authorize(shared.CapClientDelete); err != nil {
		return err
	}
	count, err := s.repo.CountInvoices(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: client has %d invoices", shared.ErrConflict, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "delete",
		Entity:   "client",
		EntityID: id,
		At:       time.Now(),
	})
	return nil
}

func validateInput(input ClientInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return shared.Validationf("name required")
	}
	return nil
}
