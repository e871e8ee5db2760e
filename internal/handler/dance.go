package handler

import (
	"github.com/gofiber/fiber/v2"

	"choreo-backend/internal/auth"
	"choreo-backend/internal/model"
	"choreo-backend/internal/service"
)

// DanceHandler dance and formation routes. Every route runs behind
// auth.AuthMiddleware and acts on the caller's own dances only.
type DanceHandler struct {
	dances *service.DanceService
}

// NewDanceHandler creates a DanceHandler
func NewDanceHandler(dances *service.DanceService) *DanceHandler {
	return &DanceHandler{dances: dances}
}

// List GET /api/dances
func (h *DanceHandler) List(c *fiber.Ctx) error {
	dances, err := h.dances.List(c.UserContext(), auth.Username(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dances)
}

// Get GET /api/dances/:id
func (h *DanceHandler) Get(c *fiber.Ctx) error {
	d, err := h.dances.Get(c.UserContext(), auth.Username(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// Create POST /api/dances
func (h *DanceHandler) Create(c *fiber.Ctx) error {
	var req CreateDanceRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	d, err := h.dances.Create(c.UserContext(), auth.Username(c), req.Name, *req.NumberOfDancers)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

// Update PUT /api/dances/:id
func (h *DanceHandler) Update(c *fiber.Ctx) error {
	var req UpdateDanceRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	update := model.DanceUpdate{Name: req.Name, NumberOfDancers: req.NumberOfDancers}
	if err := h.dances.Update(c.UserContext(), auth.Username(c), c.Params("id"), update); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete DELETE /api/dances/:id
func (h *DanceHandler) Delete(c *fiber.Ctx) error {
	if err := h.dances.Delete(c.UserContext(), auth.Username(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddFormation POST /api/dances/:id/formations
func (h *DanceHandler) AddFormation(c *fiber.Ctx) error {
	f, err := h.dances.AddFormation(c.UserContext(), auth.Username(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

// UpdateFormation PUT /api/dances/:id/formations/:fid
func (h *DanceHandler) UpdateFormation(c *fiber.Ctx) error {
	var req UpdateFormationRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	err := h.dances.UpdateFormation(c.UserContext(), auth.Username(c), c.Params("id"), c.Params("fid"), req.Positions)
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteFormation DELETE /api/dances/:id/formations/:fid
func (h *DanceHandler) DeleteFormation(c *fiber.Ctx) error {
	err := h.dances.DeleteFormation(c.UserContext(), auth.Username(c), c.Params("id"), c.Params("fid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
