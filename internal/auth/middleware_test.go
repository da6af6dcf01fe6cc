package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

func TestRequireAuth(t *testing.T) {
	repo := newFakeRepository()
	user := seedUser(t, repo, "admin@facturo.local", "secret-pass", shared.RoleAdmin)
	svc := newTestService(repo)

	var gotScope shared.Scope
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotScope = shared.ScopeFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := svc.RequireAuth(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token installs scope", func(t *testing.T) {
		token, err := NewTokenManager("test-secret", time.Hour).Issue(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, gotScope.UserID)
		assert.Equal(t, shared.RoleAdmin, gotScope.Role)
	})
}
