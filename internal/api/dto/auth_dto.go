package dto

import "time"

// TokenRequest payload for POST /local/token.
type TokenRequest struct {
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
