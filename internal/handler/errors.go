package handler

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"choreo-backend/internal/model"
	"choreo-backend/internal/repository"
	"choreo-backend/internal/service"
)

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidDancerCount), errors.Is(err, model.ErrInvalidPositions):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "Dance not found",
		})
	case errors.Is(err, service.ErrLastFormation), errors.Is(err, repository.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "Conflict",
			"message": err.Error(),
		})
	default:
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal Server Error",
			"message": "Something went wrong",
		})
	}
}
