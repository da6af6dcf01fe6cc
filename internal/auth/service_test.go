package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/shared"
)

type fakeRepository struct {
	byEmail map[string]*User
	byID    map[int64]*User
	nextID  int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail: make(map[string]*User),
		byID:    make(map[int64]*User),
		nextID:  1,
	}
}

func (f *fakeRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	return u, nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return u, nil
}

func (f *fakeRepository) Create(ctx context.Context, email, passwordHash string, role shared.Role) (*User, error) {
	if _, exists := f.byEmail[email]; exists {
		return nil, fmt.Errorf("%w: email already registered", shared.ErrConflict)
	}
	u := &User{ID: f.nextID, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	f.nextID++
	f.byEmail[email] = u
	f.byID[u.ID] = u
	return u, nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, NewTokenManager("test-secret", time.Hour), nil)
}

func seedUser(t *testing.T, repo *fakeRepository, email, password string, role shared.Role) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := repo.Create(context.Background(), email, string(hash), role)
	require.NoError(t, err)
	return u
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	repo := newFakeRepository()
	seedUser(t, repo, "admin@facturo.local", "secret-pass", shared.RoleAdmin)
	svc := newTestService(repo)

	token, user, err := svc.Login(context.Background(), "admin@facturo.local", "secret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	scope, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, scope.UserID)
	assert.Equal(t, "admin@facturo.local", scope.Email)
	assert.Equal(t, shared.RoleAdmin, scope.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newFakeRepository()
	seedUser(t, repo, "admin@facturo.local", "secret-pass", shared.RoleAdmin)
	svc := newTestService(repo)

	_, _, err := svc.Login(context.Background(), "admin@facturo.local", "wrong")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, _, err = svc.Login(context.Background(), "nobody@facturo.local", "secret-pass")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRegisterCreatesEmployee(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "  New.Staff@Facturo.local ", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "new.staff@facturo.local", user.Email)
	assert.Equal(t, shared.RoleEmployee, user.Role)

	// The stored hash must verify against the original password.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longenough")))
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newFakeRepository())

	_, err := svc.Register(context.Background(), "", "longenough")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Register(context.Background(), "a@b.test", "short")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dup@facturo.local", "longenough")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "dup@facturo.local", "longenough")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	repo := newFakeRepository()
	user := seedUser(t, repo, "admin@facturo.local", "secret-pass", shared.RoleAdmin)

	issuer := NewTokenManager("secret-one", time.Hour)
	verifier := NewTokenManager("secret-two", time.Hour)

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = issuer.Verify(token + "x")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	repo := newFakeRepository()
	user := seedUser(t, repo, "admin@facturo.local", "secret-pass", shared.RoleAdmin)

	manager := NewTokenManager("test-secret", -time.Minute)
	token, err := manager.Issue(user)
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
