package handler

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"choreo-backend/internal/auth"
	"choreo-backend/internal/repository"
	"choreo-backend/internal/service"
)

// AuthHandler register and login
type AuthHandler struct {
	credentials *service.CredentialService
	tokens      *auth.TokenManager
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(credentials *service.CredentialService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{credentials: credentials, tokens: tokens}
}

// Register creates an account and returns a token
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req CredentialsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.credentials.Register(c.UserContext(), req.Username, req.Password); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "Conflict",
				"message": "Username already taken",
			})
		}
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Bad Request",
				"message": err.Error(),
			})
		}
		return respondError(c, err)
	}

	log.Info("user registered", "username", req.Username)
	return h.issue(c, fiber.StatusCreated, req.Username)
}

// Login checks credentials and returns a token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ok, err := h.credentials.Verify(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Incorrect username or password",
		})
	}

	return h.issue(c, fiber.StatusOK, req.Username)
}

func (h *AuthHandler) issue(c *fiber.Ctx, status int, username string) error {
	token, err := h.tokens.Issue(username)
	if err != nil {
		log.Error("failed to sign token", "username", username, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "failed to generate token",
		})
	}
	return c.Status(status).JSON(TokenResponse{Token: token})
}
