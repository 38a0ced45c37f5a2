package models

import "time"

const (
	MaxOTPAttempts              = 3
	MaxInvalidSelectionAttempts = 2

	ActionConfirmRecurringTransfer = "confirm_recurring_transfer"
)

// ConversationState is the per-user record owned by the conversation state machine.
type ConversationState struct {
	UserID              string               `json:"user_id"`
	Phase               Phase                `json:"phase"`
	Intent              Intent               `json:"intent"`
	LastInput           string               `json:"last_input"`
	LastResult          *Response            `json:"last_result,omitempty"`
	PendingTransfer     *TransferDraft       `json:"pending_transfer,omitempty"`
	OTPAttempts         int                  `json:"otp_attempts"`
	SelectionAttempts   int                  `json:"selection_attempts"`
	ConfirmationContext *ConfirmationContext `json:"confirmation_context,omitempty"`
	InterruptedState    *SavedContext        `json:"interrupted_state,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// NewConversationState returns the default state for a user on first contact.
func NewConversationState(userID string) *ConversationState {
	return &ConversationState{
		UserID: userID,
		Phase:  PhaseNormal,
		Intent: IntentUnknown,
	}
}

// ClearTransfer drops everything a transfer in flight owns and returns to NORMAL.
func (s *ConversationState) ClearTransfer() {
	s.Phase = PhaseNormal
	s.Intent = IntentUnknown
	s.PendingTransfer = nil
	s.ConfirmationContext = nil
	s.OTPAttempts = 0
	s.SelectionAttempts = 0
}

// Normalize repairs a state read from an external boundary.
func (s *ConversationState) Normalize() {
	s.Phase = ParsePhase(string(s.Phase))
	if s.Intent == "" {
		s.Intent = IntentUnknown
	}
	if s.OTPAttempts < 0 {
		s.OTPAttempts = 0
	}
	if s.SelectionAttempts < 0 {
		s.SelectionAttempts = 0
	}
}

// ConfirmationContext references the completed transfer whose recurring
// recommendation is awaiting a yes/no.
type ConfirmationContext struct {
	Action           string           `json:"action"`
	RecommendationID string           `json:"recommendation_id"`
	Receipt          *TransferReceipt `json:"details,omitempty"`
}

// SavedContext is the snapshot taken when an interruption is detected.
type SavedContext struct {
	Phase               Phase                `json:"phase"`
	Intent              Intent               `json:"intent"`
	PendingTransfer     *TransferDraft       `json:"pending_transfer,omitempty"`
	ConfirmationContext *ConfirmationContext `json:"confirmation_context,omitempty"`
	OTPAttempts         int                  `json:"otp_attempts"`
	SelectionAttempts   int                  `json:"selection_attempts"`
	NewIntent           Intent               `json:"new_intent"`
	Input               string               `json:"input"`
}
