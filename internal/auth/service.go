package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    RepositoryPort
	tokens  *TokenManager
	emitter audit.Emitter
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, tokens *TokenManager, emitter audit.Emitter) *Service {
	if emitter == nil {
		emitter = audit.NopEmitter{}
	}
	return &Service{repo: repo, tokens: tokens, emitter: emitter}
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  user.ID,
		Action:   "login",
		Entity:   "user",
		EntityID: user.ID,
		At:       time.Now(),
	})
	return token, user, nil
}

// Register creates an employee account. Elevated roles are only assigned
// through user administration.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, shared.Validationf("email and password required")
	}
	if len(password) < 8 {
		return nil, shared.Validationf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.Create(ctx, email, string(hash), shared.RoleEmployee)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  user.ID,
		Action:   "register",
		Entity:   "user",
		EntityID: user.ID,
		At:       time.Now(),
	})
	return user, nil
}

// Me resolves the authenticated user record.
func (s *Service) Me(ctx context.Context, scope shared.Scope) (*User, error) {
	if scope.UserID == 0 {
		return nil, shared.ErrUnauthenticated
	}
	return s.repo.FindByID(ctx, scope.UserID)
}

// VerifyToken parses a bearer token into a caller scope.
func (s *Service) VerifyToken(token string) (shared.Scope, error) {
	return s.tokens.Verify(token)
}
