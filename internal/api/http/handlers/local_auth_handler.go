package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/auth"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// LocalAuthHandler issues local API tokens.
type LocalAuthHandler struct {
	tokens       *auth.TokenManager
	passwordHash string
}

// NewLocalAuthHandler constructs handler. An empty hash disables token
// issuance.
func NewLocalAuthHandler(tokens *auth.TokenManager, passwordHash string) *LocalAuthHandler {
	return &LocalAuthHandler{tokens: tokens, passwordHash: passwordHash}
}

// IssueToken handles POST /local/token.
func (h *LocalAuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Password) == "" {
		return apperrors.NewValidationError("password required", nil)
	}
	if h.passwordHash == "" {
		return apperrors.NewForbidden("local token issuance disabled")
	}
	if err := auth.ComparePassword(h.passwordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := h.tokens.GenerateToken(auth.LocalSubject)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}
