package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNoChannel means a notifier cannot reach the given user.
var ErrNoChannel = errors.New("no delivery channel for user")

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// Notifier delivers a plain-text message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID, message string) error {
	log.Printf("📤 Message for %s (not sent - no channel configured): %s", userID, message)
	return nil
}

type TwilioService struct {
	client       *twilio.RestClient
	whatsappFrom string // Format: "whatsapp:+14155238886"
	smsFrom      string
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	whatsappFrom := os.Getenv("TWILIO_WHATSAPP_FROM")
	smsFrom := os.Getenv("TWILIO_SMS_FROM")

	if accountSid == "" || authToken == "" || (whatsappFrom == "" && smsFrom == "") {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	if whatsappFrom != "" && !strings.HasPrefix(whatsappFrom, "whatsapp:") {
		whatsappFrom = "whatsapp:" + whatsappFrom
	}
	return &TwilioService{
		client:       client,
		whatsappFrom: whatsappFrom,
		smsFrom:      smsFrom,
	}, nil
}

// Notify sends message over WhatsApp when configured, else SMS. Users
// whose id is not an E.164 number get ErrNoChannel.
func (t *TwilioService) Notify(ctx context.Context, userID, message string) error {
	to := strings.TrimPrefix(userID, "whatsapp:")
	if !e164Pattern.MatchString(to) {
		return ErrNoChannel
	}
	if t.whatsappFrom != "" {
		return t.SendWhatsAppMessage(to, message)
	}
	return t.SendSMS(to, message)
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	if t.whatsappFrom == "" {
		return ErrNoChannel
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.whatsappFrom)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// SendSMS sends a plain SMS via Twilio
func (t *TwilioService) SendSMS(to string, message string) error {
	if t.smsFrom == "" {
		return ErrNoChannel
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.smsFrom)
	params.SetTo(to)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS: %v", err)
		return err
	}

	log.Printf("✅ SMS sent! SID: %s", *resp.Sid)
	return nil
}

// SendWhatsAppTemplate sends a WhatsApp content template via Twilio
func (t *TwilioService) SendWhatsAppTemplate(to string, templateSID string, contentVariables map[string]string) error {
	if t.whatsappFrom == "" {
		return ErrNoChannel
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.whatsappFrom)
	params.SetTo(fmt.Sprintf("whatsapp:%s", strings.TrimPrefix(to, "whatsapp:")))
	params.SetContentSid(templateSID)

	// SetContentVariables expects a JSON string
	if len(contentVariables) > 0 {
		variablesJSON, err := json.Marshal(contentVariables)
		if err != nil {
			return fmt.Errorf("failed to marshal content variables: %w", err)
		}
		params.SetContentVariables(string(variablesJSON))
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp template: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp template sent! SID: %s, Template: %s", *resp.Sid, templateSID)
	return nil
}
