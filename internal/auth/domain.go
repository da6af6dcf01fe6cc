package auth

import (
	"time"

	"github.com/facturo/facturo/internal/shared"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         shared.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}
