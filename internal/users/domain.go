package users

import (
	"time"

	"github.com/facturo/facturo/internal/shared"
)

// Account is the administrative view of a user.
type Account struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}
