package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/sla-service/internal/api/dto"
	"github.com/opsdesk/sla-service/internal/service"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

// AuthHandler issues API tokens.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return apperrors.NewValidationError("client_id and client_secret required", nil)
	}
	issued, err := h.service.IssueToken(c.UserContext(), req.ClientID, req.ClientSecret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
		Role:        issued.Role,
	}})
}
