package models

// Response statuses surfaced to callers.
const (
	StatusSuccess                  = "success"
	StatusError                    = "error"
	StatusFailed                   = "failed"
	StatusMultipleMatches          = "multiple_matches"
	StatusAccountSelectionRequired = "account_selection_required"
	StatusConfirmationRequired     = "confirmation_required"
	StatusInvalidSelection         = "invalid_selection"
	StatusOTPRequired              = "otp_required"
	StatusOTPIncorrect             = "otp_incorrect"
	StatusInterruption             = "interruption_confirmation"
)

// Response is the payload produced by a turn.
type Response struct {
	Status            string                 `json:"status"`
	Message           string                 `json:"message"`
	Intent            Intent                 `json:"intent,omitempty"`
	Options           []string               `json:"options,omitempty"`
	Candidates        []Beneficiary          `json:"candidates,omitempty"`
	Summary           *TransferSummary       `json:"summary,omitempty"`
	Receipt           *TransferReceipt       `json:"receipt,omitempty"`
	Recommendation    string                 `json:"recommendation,omitempty"`
	RecommendationID  string                 `json:"recommendation_id,omitempty"`
	BeneficiaryID     string                 `json:"beneficiary_id,omitempty"`
	Action            string                 `json:"action,omitempty"`
	AttemptsRemaining *int                   `json:"attempts_remaining,omitempty"`
	Data              map[string]interface{} `json:"data,omitempty"`
	Suggestions       []string               `json:"suggestions,omitempty"`
}

// Remaining is a helper for the optional attempts field.
func Remaining(n int) *int {
	if n < 0 {
		n = 0
	}
	return &n
}
