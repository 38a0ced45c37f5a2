package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/vfa-backend/internal/services"
)

// UserID accepts either a JSON string or a JSON number.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = UserID(n.String())
	return nil
}

// ChatRequest is one chat turn.
type ChatRequest struct {
	UserID UserID `json:"user_id"`
	Query  string `json:"query"`
	OTP    string `json:"otp"`
}

// ChatHandler exposes the conversation state machine over HTTP.
type ChatHandler struct {
	conversations *services.ConversationService
	ledger        *services.LedgerService
}

func NewChatHandler(conversations *services.ConversationService, ledger *services.LedgerService) *ChatHandler {
	return &ChatHandler{conversations: conversations, ledger: ledger}
}

// HandleChat runs one turn and returns {status, response, phase}.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	userID := strings.TrimSpace(string(req.UserID))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}
	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.OTP) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query or otp is required",
		})
	}

	result, err := h.conversations.HandleTurn(c.UserContext(), userID, req.Query, req.OTP)
	if err != nil {
		log.Printf("Error handling chat turn for %s: %v", userID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to process message")
	}
	return c.JSON(result)
}

// Cancel resets the user's conversation.
func (h *ChatHandler) Cancel(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	userID := strings.TrimSpace(string(req.UserID))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	result, err := h.conversations.Cancel(c.UserContext(), userID)
	if err != nil {
		log.Printf("Error cancelling conversation for %s: %v", userID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to reset conversation")
	}
	return c.JSON(result)
}

// GetState returns the stored conversation state.
func (h *ChatHandler) GetState(c *fiber.Ctx) error {
	state, err := h.conversations.State(c.UserContext(), c.Params("userId"))
	if err != nil {
		log.Printf("Error loading state: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load conversation")
	}
	return c.JSON(state)
}

// GetTransfers lists the user's executed transfers.
func (h *ChatHandler) GetTransfers(c *fiber.Ctx) error {
	transfers, err := h.ledger.History(c.UserContext(), c.Params("userId"))
	if err != nil {
		log.Printf("Error listing transfers: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to list transfers")
	}
	return c.JSON(fiber.Map{
		"transfers": transfers,
		"count":     len(transfers),
	})
}
