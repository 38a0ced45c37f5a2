package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/vfa-backend/internal/services"
)

// ReplySender delivers a chat reply back over WhatsApp.
type ReplySender interface {
	SendWhatsAppMessage(to string, message string) error
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	conversations *services.ConversationService
	replies       ReplySender
}

// NewWhatsAppHandler creates a new WhatsApp handler. replies may be nil,
// in which case responses are only logged.
func NewWhatsAppHandler(conversations *services.ConversationService, replies ReplySender) *WhatsAppHandler {
	return &WhatsAppHandler{
		conversations: conversations,
		replies:       replies,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // WhatsApp number (whatsapp:+919876543210)
	To         string `form:"To"`   // Your Twilio number
	Body       string `form:"Body"` // Message text
	ButtonText string `form:"ButtonText"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	body := payload.Body
	if body == "" {
		body = payload.ButtonText
	}

	// Status callbacks carry no body
	if body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	log.Printf("📱 WhatsApp Message from %s: %s", from, body)

	reply := "❌ Sorry, something went wrong. Please try again."
	result, err := h.conversations.HandleTurn(c.UserContext(), from, body, "")
	if err != nil {
		log.Printf("Error processing message: %v", err)
	} else {
		reply = formatReply(result)
	}

	if h.replies != nil {
		if err := h.replies.SendWhatsAppMessage(from, reply); err != nil {
			log.Printf("❌ Failed to send WhatsApp response: %v", err)
		} else {
			log.Printf("✅ Response sent to %s", from)
		}
	} else {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", reply)
	}

	// Acknowledge webhook receipt
	return c.SendStatus(fiber.StatusOK)
}

// formatReply flattens a turn result into WhatsApp text.
func formatReply(result services.TurnResult) string {
	resp := result.Response
	lines := []string{resp.Message}
	if resp.Recommendation != "" {
		lines = append(lines, "", resp.Recommendation+" (yes/no)")
	}
	if len(resp.Options) > 0 && resp.Summary == nil {
		for _, opt := range resp.Options {
			lines = append(lines, "• "+opt)
		}
	}
	return strings.Join(lines, "\n")
}
