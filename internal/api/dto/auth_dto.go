package dto

import (
	"time"

	"github.com/opsdesk/sla-service/internal/domain"
)

// TokenRequest payload.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse payload.
type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Role        domain.ClientRole `json:"role"`
}
