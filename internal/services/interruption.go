package services

import (
	"context"
	"strings"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

// Classifier is the slice of TextService the detector needs.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Intent, error)
}

// Detection is the outcome of interruption detection.
type Detection struct {
	Interrupted bool
	NewIntent   models.Intent
}

// InterruptionDetector decides whether off-script input during a sensitive
// phase expresses a new intent. It never changes conversation state.
type InterruptionDetector struct {
	classifier Classifier
}

func NewInterruptionDetector(classifier Classifier) *InterruptionDetector {
	return &InterruptionDetector{classifier: classifier}
}

// Detect classifies text unless it is a valid answer for phase.
func (d *InterruptionDetector) Detect(ctx context.Context, phase models.Phase, text string, draft *models.TransferDraft) (Detection, error) {
	none := Detection{NewIntent: models.IntentUnknown}
	if !phase.IsSensitive() || strings.TrimSpace(text) == "" {
		return none, nil
	}
	if validForPhase(phase, text, draft) {
		return none, nil
	}

	intent, err := d.classifier.Classify(ctx, text)
	if err != nil {
		return none, err
	}
	if intent == models.IntentUnknown || !intent.Routable() {
		return none, nil
	}
	return Detection{Interrupted: true, NewIntent: intent}, nil
}

// validForPhase reports whether text is an expected answer in phase.
func validForPhase(phase models.Phase, text string, draft *models.TransferDraft) bool {
	switch phase {
	case models.PhaseOTP:
		return utils.IsNumeric(text) || isResend(text)
	case models.PhaseConfirmation, models.PhaseTransferSummary:
		return utils.IsYesNo(text)
	case models.PhaseAccountSelection:
		_, ok := models.ParseAccountType(text)
		return ok
	case models.PhaseBeneficiarySelection:
		if draft == nil {
			return false
		}
		_, ok := matchOption(draft.MultipleOptions, text)
		return ok
	}
	return false
}

func isResend(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "resend", "resend otp", "send again":
		return true
	}
	return false
}

// matchOption finds the candidate whose name equals input, ignoring case.
// Candidates sharing a name can be picked by id or by the last four digits
// of their account number.
func matchOption(options []models.Beneficiary, input string) (models.Beneficiary, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return models.Beneficiary{}, false
	}
	for _, opt := range options {
		if strings.ToLower(opt.Name) == needle {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.ToLower(opt.ID) == needle {
			return opt, true
		}
	}
	if len(needle) != 4 || !utils.IsNumeric(needle) {
		return models.Beneficiary{}, false
	}
	var found []models.Beneficiary
	for _, opt := range options {
		if strings.HasSuffix(opt.AccountNumber, needle) {
			found = append(found, opt)
		}
	}
	if len(found) != 1 {
		return models.Beneficiary{}, false
	}
	return found[0], true
}
