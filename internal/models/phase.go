package models

import "strings"

// Phase is the step of a multi-turn flow a user is currently in.
type Phase string

const (
	PhaseNormal                   Phase = "NORMAL"
	PhaseBeneficiarySelection     Phase = "BENEFICIARY_SELECTION"
	PhaseAccountSelection         Phase = "ACCOUNT_SELECTION"
	PhaseTransferSummary          Phase = "TRANSFER_SUMMARY"
	PhaseOTP                      Phase = "OTP"
	PhaseConfirmation             Phase = "CONFIRMATION"
	PhaseInterruptionConfirmation Phase = "INTERRUPTION_CONFIRMATION"
)

var knownPhases = []Phase{
	PhaseNormal,
	PhaseBeneficiarySelection,
	PhaseAccountSelection,
	PhaseTransferSummary,
	PhaseOTP,
	PhaseConfirmation,
	PhaseInterruptionConfirmation,
}

// ParsePhase normalizes a phase read from storage or an API payload.
// Case, surrounding whitespace, and hyphen/underscore differences are ignored.
// Anything unrecognized becomes PhaseNormal.
func ParsePhase(s string) Phase {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, p := range knownPhases {
		if string(p) == normalized {
			return p
		}
	}
	return PhaseNormal
}

// IsSensitive reports whether off-script input in this phase must go
// through interruption detection.
func (p Phase) IsSensitive() bool {
	switch p {
	case PhaseBeneficiarySelection, PhaseAccountSelection, PhaseTransferSummary, PhaseOTP, PhaseConfirmation:
		return true
	}
	return false
}

// IsTransfer reports whether a pending transfer draft is owned by this phase.
func (p Phase) IsTransfer() bool {
	switch p {
	case PhaseBeneficiarySelection, PhaseAccountSelection, PhaseTransferSummary, PhaseOTP:
		return true
	}
	return false
}

func (p Phase) String() string {
	return string(p)
}

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentSpend    Intent = "spend"
	IntentFAQ      Intent = "faq"
	IntentOffers   Intent = "offers"
	IntentTransfer Intent = "transfer"
	IntentUnknown  Intent = "unknown"

	// Internal intents recorded while the transfer flow owns the conversation.
	IntentOTP                      Intent = "otp"
	IntentConfirmation             Intent = "confirmation"
	IntentInterruptionConfirmation Intent = "interruption_confirmation"
)

// ParseIntent maps a classifier label onto one of the routable intents.
func ParseIntent(s string) Intent {
	label := strings.ToLower(strings.TrimSpace(s))
	label = strings.Trim(label, "\"'`.")
	switch Intent(label) {
	case IntentSpend, IntentFAQ, IntentOffers, IntentTransfer:
		return Intent(label)
	}
	return IntentUnknown
}

// Routable reports whether the intent names a task handler.
func (i Intent) Routable() bool {
	switch i {
	case IntentSpend, IntentFAQ, IntentOffers, IntentTransfer:
		return true
	}
	return false
}
