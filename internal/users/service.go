package users

import (
	"context"
	"fmt"
	"time"

	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/shared"
)

// Service handles user administration. Every operation requires the
// user.manage capability.
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

// List returns all accounts.
func (s *Service) List(ctx context.Context, scope shared.Scope) ([]Account, error) {
	if err := scope.Authorize(shared.CapUserManage); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// ChangeRole assigns a new role to an account. Demoting the last admin is
// rejected so the system can never lock itself out.
func (s *Service) ChangeRole(ctx context.Context, scope shared.Scope, id int64, role shared.Role) error {
	if err := scope.Authorize(shared.CapUserManage); err != nil {
		return err
	}
	if !role.Valid() {
		return shared.Validationf("invalid role %q", role)
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if account.Role == shared.RoleAdmin && role != shared.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "update_role",
		Entity:   "user",
		EntityID: id,
		Details:  map[string]any{"from": account.Role, "to": role},
		At:       time.Now(),
	})
	return nil
}

// Delete removes an account with its enumerated dependent cleanups. The last
// admin cannot be deleted.
func (s *Service) Delete(ctx context.Context, scope shared.Scope, id int64) error {
	if err := scope.Authorize(shared.CapUserManage); err != nil {
		return err
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if account.Role == shared.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "delete",
		Entity:   "user",
		EntityID: id,
		At:       time.Now(),
	})
	return nil
}

func (s *Service) ensureNotLastAdmin(ctx context.Context) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("%w: cannot remove the last admin", shared.ErrConflict)
	}
	return nil
}
