package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhase(t *testing.T) {
	assert.Equal(t, PhaseOTP, ParsePhase("otp"))
	assert.Equal(t, PhaseBeneficiarySelection, ParsePhase("beneficiary-selection"))
	assert.Equal(t, PhaseInterruptionConfirmation, ParsePhase(" interruption confirmation "))
	assert.Equal(t, PhaseNormal, ParsePhase("garbage"))
	assert.Equal(t, PhaseNormal, ParsePhase(""))
}

func TestPhaseClassification(t *testing.T) {
	for _, p := range knownPhases {
		switch p {
		case PhaseNormal, PhaseInterruptionConfirmation:
			assert.False(t, p.IsSensitive(), p)
			assert.False(t, p.IsTransfer(), p)
		case PhaseConfirmation:
			assert.True(t, p.IsSensitive())
			assert.False(t, p.IsTransfer())
		default:
			assert.True(t, p.IsSensitive(), p)
			assert.True(t, p.IsTransfer(), p)
		}
	}
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentTransfer, ParseIntent(" Transfer."))
	assert.Equal(t, IntentUnknown, ParseIntent("otp"))
	assert.True(t, IntentFAQ.Routable())
	assert.False(t, IntentConfirmation.Routable())
}

func TestClearTransferKeepsInterruptedState(t *testing.T) {
	s := NewConversationState("u1")
	s.Phase = PhaseOTP
	s.PendingTransfer = &TransferDraft{Amount: 1}
	s.OTPAttempts = 2
	s.InterruptedState = &SavedContext{Phase: PhaseOTP}

	s.ClearTransfer()
	assert.Equal(t, PhaseNormal, s.Phase)
	assert.Nil(t, s.PendingTransfer)
	assert.Zero(t, s.OTPAttempts)
	assert.NotNil(t, s.InterruptedState)
}

func TestConversationStateJSONNormalizes(t *testing.T) {
	var s ConversationState
	require.NoError(t, json.Unmarshal([]byte(`{"user_id": "u1", "phase": "otp", "otp_attempts": -3}`), &s))
	s.Normalize()
	assert.Equal(t, PhaseOTP, s.Phase)
	assert.Equal(t, IntentUnknown, s.Intent)
	assert.Zero(t, s.OTPAttempts)
}

func TestParseAccountType(t *testing.T) {
	acct, ok := ParseAccountType(" SAVING ")
	assert.True(t, ok)
	assert.Equal(t, AccountSavings, acct)
	_, ok = ParseAccountType("fd")
	assert.False(t, ok)
}
