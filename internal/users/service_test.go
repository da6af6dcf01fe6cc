package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

type fakeRepository struct {
	accounts map[int64]*Account
	nextID   int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{accounts: make(map[int64]*Account), nextID: 1}
}

func (f *fakeRepository) add(email string, role shared.Role) *Account {
	a := &Account{ID: f.nextID, Email: email, Role: role, CreatedAt: time.Now()}
	f.nextID++
	f.accounts[a.ID] = a
	return a
}

func (f *fakeRepository) List(ctx context.Context) ([]Account, error) {
	out := []Account{}
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepository) Get(ctx context.Context, id int64) (*Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return a, nil
}

func (f *fakeRepository) UpdateRole(ctx context.Context, id int64, role shared.Role) error {
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	a.Role = role
	return nil
}

func (f *fakeRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	for _, a := range f.accounts {
		if a.Role == shared.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	delete(f.accounts, id)
	return nil
}

func adminScope() shared.Scope {
	return shared.Scope{UserID: 100, Email: "admin@facturo.local", Role: shared.RoleAdmin}
}

func TestListRequiresUserManage(t *testing.T) {
	svc := NewService(newFakeRepository(), nil)

	_, err := svc.List(context.Background(), shared.Scope{UserID: 2, Role: shared.RoleAccountant})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestChangeRole(t *testing.T) {
	repo := newFakeRepository()
	repo.add("admin@facturo.local", shared.RoleAdmin)
	staff := repo.add("staff@facturo.local", shared.RoleEmployee)
	svc := NewService(repo, nil)

	err := svc.ChangeRole(context.Background(), adminScope(), staff.ID, shared.RoleAccountant)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAccountant, repo.accounts[staff.ID].Role)
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	repo := newFakeRepository()
	staff := repo.add("staff@facturo.local", shared.RoleEmployee)
	svc := NewService(repo, nil)

	err := svc.ChangeRole(context.Background(), adminScope(), staff.ID, "root")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCannotDemoteLastAdmin(t *testing.T) {
	repo := newFakeRepository()
	admin := repo.add("admin@facturo.local", shared.RoleAdmin)
	svc := NewService(repo, nil)

	err := svc.ChangeRole(context.Background(), adminScope(), admin.ID, shared.RoleEmployee)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)

	// A second admin makes the demotion legal.
	repo.add("other@facturo.local", shared.RoleAdmin)
	err = svc.ChangeRole(context.Background(), adminScope(), admin.ID, shared.RoleEmployee)
	assert.NoError(t, err)
}

func TestCannotDeleteLastAdmin(t *testing.T) {
	repo := newFakeRepository()
	admin := repo.add("admin@facturo.local", shared.RoleAdmin)
	svc := NewService(repo, nil)

	err := svc.Delete(context.Background(), adminScope(), admin.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteNonAdminAccount(t *testing.T) {
	repo := newFakeRepository()
	repo.add("admin@facturo.local", shared.RoleAdmin)
	staff := repo.add("staff@facturo.local", shared.RoleEmployee)
	svc := NewService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), adminScope(), staff.ID))
	err := svc.ChangeRole(context.Background(), adminScope(), staff.ID, shared.RoleAdmin)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
