package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	err      error
	messages map[string]string
}

func (c *captureNotifier) Notify(ctx context.Context, userID, message string) error {
	if c.err != nil {
		return c.err
	}
	if c.messages == nil {
		c.messages = map[string]string{}
	}
	c.messages[userID] = message
	return nil
}

func TestTemplateService_Render(t *testing.T) {
	ts := NewTemplateService()

	body, err := ts.Render("transfer_otp", map[string]string{
		"code": "482913", "amount": "500", "beneficiary": "Lakshmi Rao", "validity": "2 minutes",
	})
	require.NoError(t, err)
	assert.Equal(t, "482913 is your OTP to transfer ₹500 to Lakshmi Rao. Valid for 2 minutes. Do not share it with anyone.", body)

	_, err = ts.Render("transfer_otp", map[string]string{"code": "1"})
	assert.Error(t, err)

	_, err = ts.Render("missing", nil)
	assert.Error(t, err)
}

func TestTemplateService_SendTemplateFallsThroughNotifiers(t *testing.T) {
	unreachable := &captureNotifier{err: ErrNoChannel}
	capture := &captureNotifier{}
	ts := NewTemplateService(unreachable, capture)

	err := ts.SendTemplate(context.Background(), "u1", "transfer_completed", map[string]string{
		"amount": "500", "beneficiary": "John Mathew", "account": "XXXX4455", "transaction_id": "tx-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "₹500 sent to John Mathew (A/c XXXX4455). Ref: tx-1.", capture.messages["u1"])
}

func TestTemplateService_SendTemplateReportsDeliveryFailure(t *testing.T) {
	ts := NewTemplateService(&captureNotifier{err: errors.New("twilio 503")}, &captureNotifier{err: ErrNoChannel})

	err := ts.SendTemplate(context.Background(), "u1", "transfer_completed", map[string]string{
		"amount": "1", "beneficiary": "x", "account": "y", "transaction_id": "z",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio 503")

	err = NewTemplateService(&captureNotifier{err: ErrNoChannel}).SendTemplate(context.Background(), "u1", "transfer_completed", map[string]string{
		"amount": "1", "beneficiary": "x", "account": "y", "transaction_id": "z",
	})
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestTwilioService_NotifyRejectsNonPhoneUsers(t *testing.T) {
	twilioService := &TwilioService{whatsappFrom: "whatsapp:+14155238886"}
	assert.ErrorIs(t, twilioService.Notify(context.Background(), "user-42", "hi"), ErrNoChannel)
}

func TestNewTwilioService_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	_, err := NewTwilioService()
	assert.Error(t, err)
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "XXXXXXXXXX4455", MaskAccount("11122233344455"))
	assert.Equal(t, "123", MaskAccount("123"))
}
