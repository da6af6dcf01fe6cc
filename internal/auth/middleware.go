package auth

import (
	"net/http"
	"strings"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// RequireAuth parses the Authorization bearer token and installs the caller
// scope in the request context. Requests without a valid token terminate with
// 401 before reaching any handler.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		scope, err := s.VerifyToken(token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ctx := shared.ContextWithScope(r.Context(), scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
