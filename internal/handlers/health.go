package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/vfa-backend/internal/services"
)

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version      string
	StorageType  string
	TextProvider string
	store        Pinger
	sessions     *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, storageType, textProvider string, store Pinger, sessions *services.SessionManager) *HealthHandler {
	return &HealthHandler{
		Version:      version,
		StorageType:  storageType,
		TextProvider: textProvider,
		store:        store,
		sessions:     sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	statusCode := fiber.StatusOK
	storageOK := true
	if err := h.store.Ping(ctx); err != nil {
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
		storageOK = false
	}

	active := 0
	if h.sessions != nil {
		active = len(h.sessions.GetActiveSessions())
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"service": "VFA Backend",
		"version": h.Version,
		"services": fiber.Map{
			"storage":         storageOK,
			"storage_type":    h.StorageType,
			"text_service":    h.TextProvider,
			"active_sessions": active,
		},
	})
}
