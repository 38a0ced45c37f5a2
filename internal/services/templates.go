package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TemplateConfig holds template configuration
type TemplateConfig struct {
	Description string
	Parameters  []string
	Body        string // placeholders are {{parameter_name}}
	ContentEnv  string // env var holding an approved WhatsApp content SID
}

// MessageTemplates are the outbound messages the assistant sends outside a chat reply.
var MessageTemplates = map[string]TemplateConfig{
	"transfer_otp": {
		Description: "One-time passcode authorizing a transfer",
		Parameters:  []string{"code", "amount", "beneficiary", "validity"},
		Body:        "{{code}} is your OTP to transfer ₹{{amount}} to {{beneficiary}}. Valid for {{validity}}. Do not share it with anyone.",
		ContentEnv:  "TWILIO_TEMPLATE_TRANSFER_OTP",
	},
	"transfer_completed": {
		Description: "Receipt for an executed transfer",
		Parameters:  []string{"amount", "beneficiary", "account", "transaction_id"},
		Body:        "₹{{amount}} sent to {{beneficiary}} (A/c {{account}}). Ref: {{transaction_id}}.",
		ContentEnv:  "TWILIO_TEMPLATE_TRANSFER_COMPLETED",
	},
}

// TemplateService renders message templates and hands them to the first
// notifier that can reach the user.
type TemplateService struct {
	notifiers []Notifier
}

// NewTemplateService creates a new template service
func NewTemplateService(notifiers ...Notifier) *TemplateService {
	if len(notifiers) == 0 {
		notifiers = []Notifier{LogNotifier{}}
	}
	return &TemplateService{notifiers: notifiers}
}

// Render fills a template's placeholders.
func (ts *TemplateService) Render(templateName string, params map[string]string) (string, error) {
	template, exists := MessageTemplates[templateName]
	if !exists {
		return "", fmt.Errorf("template '%s' not found", templateName)
	}

	pairs := make([]string, 0, 2*len(template.Parameters))
	for _, requiredParam := range template.Parameters {
		value, ok := params[requiredParam]
		if !ok {
			return "", fmt.Errorf("missing required parameter: %s", requiredParam)
		}
		pairs = append(pairs, "{{"+requiredParam+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template.Body), nil
}

// SendTemplate renders and delivers a template to userID. An approved
// WhatsApp content template is preferred when configured.
func (ts *TemplateService) SendTemplate(ctx context.Context, userID, templateName string, params map[string]string) error {
	body, err := ts.Render(templateName, params)
	if err != nil {
		return err
	}

	template := MessageTemplates[templateName]
	sid := os.Getenv(template.ContentEnv)
	if sid != "" && e164Pattern.MatchString(strings.TrimPrefix(userID, "whatsapp:")) {
		for _, n := range ts.notifiers {
			twilioService, ok := n.(*TwilioService)
			if !ok {
				continue
			}
			// Twilio uses {{1}}, {{2}}, etc.
			contentVariables := make(map[string]string, len(template.Parameters))
			for i, name := range template.Parameters {
				contentVariables[fmt.Sprintf("%d", i+1)] = params[name]
			}
			if err := twilioService.SendWhatsAppTemplate(userID, sid, contentVariables); err == nil {
				return nil
			}
		}
	}

	var lastErr error
	for _, n := range ts.notifiers {
		err := n.Notify(ctx, userID, body)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoChannel) {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrNoChannel
	}
	return fmt.Errorf("deliver %s to %s: %w", templateName, userID, lastErr)
}
