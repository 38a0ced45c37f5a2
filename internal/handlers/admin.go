package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/services"
)

// BeneficiaryLister exposes the payee directory.
type BeneficiaryLister interface {
	ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error)
}

// AdminHandler handles operator views over live sessions and the directory.
type AdminHandler struct {
	sessions      *services.SessionManager
	beneficiaries BeneficiaryLister
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *services.SessionManager, beneficiaries BeneficiaryLister) *AdminHandler {
	return &AdminHandler{
		sessions:      sessions,
		beneficiaries: beneficiaries,
	}
}

// GetActiveSessions lists sessions that have not idled out.
func (h *AdminHandler) GetActiveSessions(c *fiber.Ctx) error {
	sessions := h.sessions.GetActiveSessions()
	return c.JSON(fiber.Map{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns one user's session.
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.sessions.GetSession(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(session)
}

// GetBeneficiaries lists the beneficiary directory with account numbers masked.
func (h *AdminHandler) GetBeneficiaries(c *fiber.Ctx) error {
	beneficiaries, err := h.beneficiaries.ListBeneficiaries(c.UserContext())
	if err != nil {
		log.Printf("Error listing beneficiaries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch beneficiaries",
		})
	}

	masked := make([]models.Beneficiary, len(beneficiaries))
	for i, b := range beneficiaries {
		b.AccountNumber = services.MaskAccount(b.AccountNumber)
		masked[i] = b
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"beneficiaries": masked,
		"count":         len(masked),
	})
}
