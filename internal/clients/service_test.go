package clients

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

type fakeRepository struct {
	clients          map[int64]*Client
	activeInvoices   map[int64]int64
	archivedInvoices map[int64]int64
	nextID           int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		clients:          make(map[int64]*Client),
		activeInvoices:   make(map[int64]int64),
		archivedInvoices: make(map[int64]int64),
		nextID:           1,
	}
}

func (f *fakeRepository) List(ctx context.Context) ([]Client, error) {
	out := []Client{}
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRepository) Search(ctx context.Context, text string) ([]Client, error) {
	out := []Client{}
	for _, c := range f.clients {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(text)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepository) Get(ctx context.Context, id int64) (*Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (f *fakeRepository) Create(ctx context.Context, input ClientInput) (*Client, error) {
	c := &Client{
		ID:        f.nextID,
		Name:      input.Name,
		Email:     input.Email,
		Address:   input.Address,
		CreatedAt: time.Now(),
	}
	f.nextID++
	f.clients[c.ID] = c
	return c, nil
}

func (f *fakeRepository) Update(ctx context.Context, id int64, input ClientInput) (*Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	c.Name = input.Name
	c.Email = input.Email
	c.Address = input.Address
	return c, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := f.clients[id]; !ok {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	delete(f.clients, id)
	return nil
}

func (f *fakeRepository) CountInvoices(ctx context.Context, id int64) (int64, error) {
	return f.activeInvoices[id] + f.archivedInvoices[id], nil
}

func adminScope() shared.Scope {
	return shared.Scope{UserID: 1, Email: "admin@facturo.local", Role: shared.RoleAdmin}
}

func employeeScope() shared.Scope {
	return shared.Scope{UserID: 3, Email: "staff@facturo.local", Role: shared.RoleEmployee}
}

func clientRoleScope() shared.Scope {
	return shared.Scope{UserID: 9, Email: "billing@acme.test", Role: shared.RoleClient}
}

func TestCreateClient(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)

	c, err := svc.Create(context.Background(), employeeScope(), ClientInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
}

func TestCreateClientRequiresName(t *testing.T) {
	svc := NewService(newFakeRepository(), nil)

	_, err := svc.Create(context.Background(), adminScope(), ClientInput{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestClientRoleCannotReadClients(t *testing.T) {
	svc := NewService(newFakeRepository(), nil)

	_, err := svc.List(context.Background(), clientRoleScope())
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestEmployeeCannotDeleteClient(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, adminScope(), ClientInput{Name: "Acme"})
	require.NoError(t, err)

	err = svc.Delete(ctx, employeeScope(), c.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteClientWithActiveInvoicesConflicts(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, adminScope(), ClientInput{Name: "Acme"})
	require.NoError(t, err)
	repo.activeInvoices[c.ID] = 3

	err = svc.Delete(ctx, adminScope(), c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "3 invoices")

	repo.activeInvoices[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, adminScope(), c.ID))
}

func TestDeleteClientWithOnlyArchivedInvoicesConflicts(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, adminScope(), ClientInput{Name: "Acme"})
	require.NoError(t, err)
	repo.archivedInvoices[c.ID] = 2

	// Archived invoices still reference the client, so deletion must
	// report a conflict, never a storage failure.
	err = svc.Delete(ctx, adminScope(), c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.NotErrorIs(t, err, shared.ErrStorage)
	require.Contains(t, repo.clients, c.ID)
}

func TestSearchClients(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, adminScope(), ClientInput{Name: "Acme Industries"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, adminScope(), ClientInput{Name: "Globex"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, adminScope(), "acme")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Acme Industries", found[0].Name)
}
