package clients

import "time"

// Client is a billed party. Email, when present, doubles as the identity
// linking key for client-role callers.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInput for creating and updating clients.
type ClientInput struct {
	Name    string
	Email   *string
	Address *string
}
