package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const pingTimeout = 2 * time.Second

// Pinger a dependency that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler health check handler
type HealthHandler struct {
	store Pinger
	redis Pinger
}

// NewHealthHandler creates a HealthHandler. redis may be nil.
func NewHealthHandler(store Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{store: store, redis: redis}
}

// ComponentCheck component status
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse health check response
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check full status (store + redis)
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	// the store is required
	if check := ping(c.UserContext(), h.store); check.Status == "healthy" {
		response.Checks["database"] = check
	} else {
		response.Status = "unhealthy"
		check.Error = "database ping failed"
		response.Checks["database"] = check
	}

	// redis only backs rate limiting; losing it degrades
	if h.redis != nil {
		check := ping(c.UserContext(), h.redis)
		if check.Status != "healthy" {
			check.Status = "degraded"
			check.Error = "redis unreachable"
		}
		response.Checks["redis"] = check
	} else {
		response.Checks["redis"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness reports the process is up
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness reports whether the store answers a ping
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if check := ping(c.UserContext(), h.store); check.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}

func ping(ctx context.Context, p Pinger) ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return ComponentCheck{Status: "unhealthy"}
	}
	return ComponentCheck{Status: "healthy", Latency: time.Since(start).String()}
}
