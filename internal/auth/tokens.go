package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/facturo/facturo/internal/shared"
)

// Claims carried in access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the user.
func (m *TokenManager) Issue(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses a token string into a caller scope.
func (m *TokenManager) Verify(tokenString string) (shared.Scope, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return shared.Scope{}, fmt.Errorf("%w: invalid token", shared.ErrUnauthenticated)
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return shared.Scope{}, fmt.Errorf("%w: invalid subject", shared.ErrUnauthenticated)
	}
	role := shared.Role(claims.Role)
	if !role.Valid() {
		return shared.Scope{}, fmt.Errorf("%w: unknown role", shared.ErrUnauthenticated)
	}
	return shared.Scope{UserID: userID, Email: claims.Email, Role: role}, nil
}
