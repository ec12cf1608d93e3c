package service

import (
	"context"
	"time"

	"github.com/opsdesk/sla-service/internal/auth"
	"github.com/opsdesk/sla-service/internal/config"
	"github.com/opsdesk/sla-service/internal/domain"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

// AuthService issues tokens to the API clients configured in AUTH_CLIENTS.
type AuthService struct {
	clients  map[string]domain.APIClient
	tokenMgr *auth.TokenManager
}

// IssuedToken is the result of a successful client login.
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	Role        domain.ClientRole
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config) (*AuthService, error) {
	clients, err := auth.ParseClients(cfg.Auth.Clients)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.APIClient, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	return &AuthService{
		clients:  byID,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}, nil
}

// TokenManager exposes the manager shared with the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// ClientCount reports how many clients may log in.
func (s *AuthService) ClientCount() int {
	return len(s.clients)
}

// IssueToken authenticates a client by id and secret.
func (s *AuthService) IssueToken(_ context.Context, clientID, secret string) (*IssuedToken, error) {
	client, ok := s.clients[clientID]
	if !ok {
		return nil, apperrors.NewUnauthorized("invalid client credentials")
	}
	if err := auth.CompareSecret(client.SecretHash, secret); err != nil {
		return nil, apperrors.NewUnauthorized("invalid client credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(client.ID, client.Role)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{AccessToken: token, ExpiresAt: exp, Role: client.Role}, nil
}
