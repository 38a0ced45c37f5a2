package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

// Collaborators of the transfer flow.
type (
	TransferExtractor interface {
		ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error)
	}
	Resolver interface {
		Resolve(ctx context.Context, nickname string) (Resolution, error)
	}
	OTPIssuer interface {
		Issue(ctx context.Context, userID string) (string, error)
		Verify(ctx context.Context, userID, code string) (bool, int, error)
		Discard(ctx context.Context, userID string) error
	}
	Ledger interface {
		PerformTransfer(ctx context.Context, req TransferRequest) (*models.TransferReceipt, error)
	}
	MessageSender interface {
		SendTemplate(ctx context.Context, userID, templateName string, params map[string]string) error
	}
)

var accountOptions = []string{string(models.AccountSavings), string(models.AccountCurrent)}

// TransferFlow walks a transfer from free text to an executed, receipted
// transaction. Each step mutates state in place and returns the reply.
// A non-nil error means a collaborator failed; the caller owns recovery.
type TransferFlow struct {
	extractor   TransferExtractor
	resolver    Resolver
	otp         OTPIssuer
	ledger      Ledger
	sender      MessageSender
	metrics     *Metrics
	otpValidity string
}

// TransferFlowDeps groups the flow's collaborators.
type TransferFlowDeps struct {
	Extractor   TransferExtractor
	Resolver    Resolver
	OTP         OTPIssuer
	Ledger      Ledger
	Sender      MessageSender
	Metrics     *Metrics
	OTPValidity string
}

func NewTransferFlow(deps TransferFlowDeps) *TransferFlow {
	if deps.Sender == nil {
		deps.Sender = NewTemplateService()
	}
	if deps.OTPValidity == "" {
		deps.OTPValidity = "2 minutes"
	}
	return &TransferFlow{
		extractor:   deps.Extractor,
		resolver:    deps.Resolver,
		otp:         deps.OTP,
		ledger:      deps.Ledger,
		sender:      deps.Sender,
		metrics:     deps.Metrics,
		otpValidity: deps.OTPValidity,
	}
}

// Initiate starts a transfer from a NORMAL-phase request, skipping any step
// whose answer is already in the text.
func (f *TransferFlow) Initiate(ctx context.Context, state *models.ConversationState, text string) (models.Response, error) {
	details, err := f.extractor.ExtractTransferDetails(ctx, text)
	if err != nil {
		return models.Response{}, fmt.Errorf("extract transfer details: %w", err)
	}

	if details.Amount <= 0 || strings.TrimSpace(details.ToBeneficiary) == "" {
		state.ClearTransfer()
		return models.Response{
			Status:  models.StatusError,
			Message: "Could not extract amount or beneficiary. Try: 'Transfer 500 to mom' or 'Send 100 to john from savings'",
		}, nil
	}
	if details.Frequency == "" {
		details.Frequency = models.FrequencyOneTime
	}

	resolution, err := f.resolver.Resolve(ctx, details.ToBeneficiary)
	if err != nil {
		return models.Response{}, fmt.Errorf("resolve beneficiary: %w", err)
	}

	draft := &models.TransferDraft{
		Amount:            details.Amount,
		ToBeneficiaryName: details.ToBeneficiary,
		FromAccount:       details.FromAccount,
		Frequency:         details.Frequency,
	}

	switch resolution.Kind {
	case MatchNone:
		state.ClearTransfer()
		return models.Response{
			Status:  models.StatusError,
			Message: fmt.Sprintf("No beneficiary found with name '%s'", details.ToBeneficiary),
		}, nil

	case MatchAmbiguous:
		draft.MultipleOptions = resolution.Candidates
		f.enter(state, models.PhaseBeneficiarySelection, draft)
		log.Printf("Multiple beneficiaries found for '%s', user %s moving to %s", details.ToBeneficiary, state.UserID, state.Phase)
		return models.Response{
			Status:     models.StatusMultipleMatches,
			Message:    fmt.Sprintf("Multiple beneficiaries found for '%s'. Please choose one.", details.ToBeneficiary),
			Options:    optionNames(resolution.Candidates),
			Candidates: resolution.Candidates,
		}, nil
	}

	draft.ToBeneficiary = resolution.Beneficiary
	if draft.FromAccount == "" {
		f.enter(state, models.PhaseAccountSelection, draft)
		return models.Response{
			Status: models.StatusAccountSelectionRequired,
			Message: fmt.Sprintf("Sending ₹%s to %s. Which account do you want to send from? (Savings/Current)",
				utils.FormatAmount(draft.Amount), draft.ToBeneficiary.Name),
			Options: accountOptions,
		}, nil
	}

	f.enter(state, models.PhaseTransferSummary, draft)
	return f.summarize(state), nil
}

// SelectBeneficiary resolves an ambiguous payee from the offered options.
func (f *TransferFlow) SelectBeneficiary(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	draft := state.PendingTransfer
	if draft == nil || len(draft.MultipleOptions) == 0 {
		return f.lostDraft(state), nil
	}

	selected, ok := matchOption(draft.MultipleOptions, input)
	if !ok {
		return f.invalidAnswer(state,
			"Too many invalid selections. Transfer cancelled.",
			"Invalid selection. %d attempt(s) remaining. Please select from:",
			optionNames(draft.MultipleOptions)), nil
	}

	draft.ToBeneficiary = &selected
	draft.MultipleOptions = nil
	state.SelectionAttempts = 0

	if draft.FromAccount == "" {
		state.Phase = models.PhaseAccountSelection
		return models.Response{
			Status:  models.StatusAccountSelectionRequired,
			Message: fmt.Sprintf("Selected %s. Which account do you want to send from? (Savings/Current)", selected.Name),
			Options: accountOptions,
		}, nil
	}

	state.Phase = models.PhaseTransferSummary
	return f.summarize(state), nil
}

// SelectAccount accepts Savings or Current.
func (f *TransferFlow) SelectAccount(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	draft := state.PendingTransfer
	if draft == nil || draft.ToBeneficiary == nil {
		return f.lostDraft(state), nil
	}

	account, ok := models.ParseAccountType(input)
	if !ok {
		return f.invalidAnswer(state,
			"Too many invalid selections. Transfer cancelled.",
			"Invalid account type. %d attempt(s) remaining. Please select: Savings or Current",
			accountOptions), nil
	}

	draft.FromAccount = account
	state.SelectionAttempts = 0
	state.Phase = models.PhaseTransferSummary
	return f.summarize(state), nil
}

// ConfirmSummary handles the yes/no on the transfer summary. Yes issues an OTP.
func (f *TransferFlow) ConfirmSummary(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	draft := state.PendingTransfer
	if draft == nil || draft.ToBeneficiary == nil || draft.Summary == nil {
		return f.lostDraft(state), nil
	}

	switch utils.NormalizeConfirmation(input) {
	case utils.No:
		f.cancel(state)
		return models.Response{Status: models.StatusFailed, Message: "Transfer cancelled."}, nil
	case utils.Yes:
		if err := f.sendOTP(ctx, state); err != nil {
			return models.Response{}, err
		}
		state.SelectionAttempts = 0
		state.OTPAttempts = 0
		state.Intent = models.IntentOTP
		state.Phase = models.PhaseOTP
		return models.Response{
			Status: models.StatusOTPRequired,
			Message: fmt.Sprintf("OTP sent to your registered mobile. Please enter OTP to confirm transfer of ₹%s",
				utils.FormatAmount(draft.Amount)),
			Summary: draft.Summary,
		}, nil
	}

	return f.invalidAnswer(state,
		"Too many invalid responses. Transfer cancelled.",
		"Please confirm with 'yes' or 'no'. %d attempt(s) remaining.",
		nil), nil
}

// ValidateOTP checks the submitted code and executes the transfer on success.
func (f *TransferFlow) ValidateOTP(ctx context.Context, state *models.ConversationState, code string) (models.Response, error) {
	draft := state.PendingTransfer
	if draft == nil || draft.ToBeneficiary == nil {
		return f.lostDraft(state), nil
	}

	if isResend(code) {
		if err := f.sendOTP(ctx, state); err != nil {
			return models.Response{}, err
		}
		remaining := models.MaxOTPAttempts - state.OTPAttempts
		return models.Response{
			Status:            models.StatusOTPRequired,
			Message:           fmt.Sprintf("A new OTP has been sent. %d attempt(s) remaining.", remaining),
			AttemptsRemaining: models.Remaining(remaining),
		}, nil
	}

	valid, left, err := f.otp.Verify(ctx, state.UserID, strings.TrimSpace(code))
	if err != nil {
		return models.Response{}, fmt.Errorf("verify otp: %w", err)
	}

	if !valid {
		state.OTPAttempts++
		if state.OTPAttempts >= models.MaxOTPAttempts {
			f.metrics.ObserveOTP("exhausted")
			log.Printf("Max OTP attempts exceeded for user %s", state.UserID)
			f.cancel(state)
			return models.Response{
				Status:            models.StatusFailed,
				Message:           "Maximum OTP attempts exceeded. Transfer cancelled.",
				AttemptsRemaining: models.Remaining(0),
			}, nil
		}

		remaining := models.MaxOTPAttempts - state.OTPAttempts
		message := fmt.Sprintf("Invalid OTP. %d attempt(s) remaining.", remaining)
		if left == 0 {
			f.metrics.ObserveOTP("expired")
			message = fmt.Sprintf("Your OTP has expired. Reply 'resend' for a new code. %d attempt(s) remaining.", remaining)
		} else {
			f.metrics.ObserveOTP("invalid")
		}
		return models.Response{
			Status:            models.StatusOTPIncorrect,
			Message:           message,
			AttemptsRemaining: models.Remaining(remaining),
		}, nil
	}
	f.metrics.ObserveOTP("valid")

	from := draft.FromAccount
	if from == "" {
		from = models.AccountSavings
	}
	receipt, err := f.ledger.PerformTransfer(ctx, TransferRequest{
		UserID:      state.UserID,
		Beneficiary: *draft.ToBeneficiary,
		Amount:      draft.Amount,
		FromAccount: from,
		Frequency:   draft.Frequency,
	})
	if err != nil {
		return models.Response{}, fmt.Errorf("perform transfer: %w", err)
	}
	f.metrics.ObserveTransfer(models.StatusSuccess)

	amount := utils.FormatAmount(receipt.Amount)
	if err := f.sender.SendTemplate(ctx, state.UserID, "transfer_completed", map[string]string{
		"amount":         amount,
		"beneficiary":    receipt.Beneficiary,
		"account":        MaskAccount(receipt.AccountNumber),
		"transaction_id": receipt.TransactionID,
	}); err != nil {
		log.Printf("⚠️  Transfer receipt not delivered to %s: %v", state.UserID, err)
	}

	recommendationID := "rec-" + uuid.NewString()
	recommendation := fmt.Sprintf("You sent ₹%s to %s today. Would you like to make this a recurring monthly transfer?",
		amount, receipt.Beneficiary)

	state.PendingTransfer = nil
	state.OTPAttempts = 0
	state.SelectionAttempts = 0
	state.Intent = models.IntentConfirmation
	state.ConfirmationContext = &models.ConfirmationContext{
		Action:           models.ActionConfirmRecurringTransfer,
		RecommendationID: recommendationID,
		Receipt:          receipt,
	}
	state.Phase = models.PhaseConfirmation
	log.Printf("OTP validated, transfer %s successful, user %s moving to CONFIRMATION", receipt.TransactionID, state.UserID)

	return models.Response{
		Status:           models.StatusSuccess,
		Message:          fmt.Sprintf("Transfer of ₹%s to %s successful!", amount, receipt.Beneficiary),
		Receipt:          receipt,
		Recommendation:   recommendation,
		RecommendationID: recommendationID,
		BeneficiaryID:    receipt.BeneficiaryID,
	}, nil
}

// ConfirmRecurring answers the post-transfer recurring recommendation.
// Anything other than a yes declines it.
func (f *TransferFlow) ConfirmRecurring(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	confirmation := state.ConfirmationContext
	state.ConfirmationContext = nil
	state.Intent = models.IntentUnknown
	state.Phase = models.PhaseNormal

	if confirmation == nil || confirmation.Action != models.ActionConfirmRecurringTransfer {
		return models.Response{Status: models.StatusError, Message: "No pending confirmation."}, nil
	}

	if utils.NormalizeConfirmation(input) == utils.Yes {
		resp := models.Response{
			Status:           models.StatusSuccess,
			Message:          "Great! Let's set up your recurring transfer. Please provide frequency and start date.",
			Action:           "show_transfer_form",
			RecommendationID: confirmation.RecommendationID,
		}
		if confirmation.Receipt != nil {
			resp.BeneficiaryID = confirmation.Receipt.BeneficiaryID
		}
		return resp, nil
	}
	return models.Response{
		Status:  models.StatusSuccess,
		Message: "Recurring transfer not set up. Transfer completed successfully!",
		Action:  "close_transfer_form",
	}, nil
}

// Abandon drops any passcode still outstanding for userID.
func (f *TransferFlow) Abandon(ctx context.Context, userID string) error {
	if err := f.otp.Discard(ctx, userID); err != nil {
		return fmt.Errorf("discard otp: %w", err)
	}
	return nil
}

// Reprompt repeats the question for phase after an interruption is declined.
func (f *TransferFlow) Reprompt(state *models.ConversationState) models.Response {
	switch state.Phase {
	case models.PhaseOTP:
		return models.Response{Status: models.StatusOTPRequired, Message: "Continuing with transfer. Please provide the OTP."}
	case models.PhaseConfirmation:
		return models.Response{Status: models.StatusConfirmationRequired, Message: "Continuing with confirmation. Please reply 'yes' or 'no'."}
	case models.PhaseBeneficiarySelection:
		var options []string
		if state.PendingTransfer != nil {
			options = optionNames(state.PendingTransfer.MultipleOptions)
		}
		return models.Response{Status: models.StatusMultipleMatches, Message: "Continuing with transfer. Please select a beneficiary:", Options: options}
	case models.PhaseAccountSelection:
		return models.Response{
			Status:  models.StatusAccountSelectionRequired,
			Message: "Continuing with transfer. Which account do you want to send from? (Savings/Current)",
			Options: accountOptions,
		}
	case models.PhaseTransferSummary:
		resp := f.summarize(state)
		resp.Message = "Continuing with transfer.\n" + resp.Message
		return resp
	}
	return models.Response{Status: models.StatusSuccess, Message: "Resuming previous task."}
}

// enter starts a new flow in phase with fresh counters.
func (f *TransferFlow) enter(state *models.ConversationState, phase models.Phase, draft *models.TransferDraft) {
	state.PendingTransfer = draft
	state.ConfirmationContext = nil
	state.SelectionAttempts = 0
	state.OTPAttempts = 0
	state.Intent = models.IntentTransfer
	state.Phase = phase
}

// summarize builds the draft summary and returns the confirmation prompt.
func (f *TransferFlow) summarize(state *models.ConversationState) models.Response {
	draft := state.PendingTransfer
	b := draft.ToBeneficiary
	draft.Summary = &models.TransferSummary{
		Amount:        draft.Amount,
		FromAccount:   draft.FromAccount,
		ToBeneficiary: b.Name,
		ToAccount:     b.AccountNumber,
		ToIFSC:        b.IFSC,
	}
	return models.Response{
		Status: models.StatusConfirmationRequired,
		Message: fmt.Sprintf("Transfer Summary:\nAmount: ₹%s\nFrom: %s Account\nTo: %s\nAccount: %s\n\nConfirm? (yes/no)",
			utils.FormatAmount(draft.Amount), draft.FromAccount, b.Name, b.AccountNumber),
		Summary: draft.Summary,
	}
}

// invalidAnswer spends one selection attempt and cancels the draft once
// the budget is gone.
func (f *TransferFlow) invalidAnswer(state *models.ConversationState, exhausted, retryFormat string, options []string) models.Response {
	state.SelectionAttempts++
	if state.SelectionAttempts >= models.MaxInvalidSelectionAttempts {
		log.Printf("Max selection attempts exceeded for user %s in %s", state.UserID, state.Phase)
		f.cancel(state)
		return models.Response{Status: models.StatusFailed, Message: exhausted, AttemptsRemaining: models.Remaining(0)}
	}

	remaining := models.MaxInvalidSelectionAttempts - state.SelectionAttempts
	return models.Response{
		Status:            models.StatusInvalidSelection,
		Message:           fmt.Sprintf(retryFormat, remaining),
		Options:           options,
		AttemptsRemaining: models.Remaining(remaining),
	}
}

func (f *TransferFlow) cancel(state *models.ConversationState) {
	f.metrics.ObserveTransfer(models.StatusFailed)
	state.ClearTransfer()
}

func (f *TransferFlow) lostDraft(state *models.ConversationState) models.Response {
	log.Printf("⚠️  No pending transfer for user %s in %s, resetting", state.UserID, state.Phase)
	state.ClearTransfer()
	return models.Response{Status: models.StatusError, Message: "Transfer details not found. Please restart."}
}

func (f *TransferFlow) sendOTP(ctx context.Context, state *models.ConversationState) error {
	code, err := f.otp.Issue(ctx, state.UserID)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	draft := state.PendingTransfer
	err = f.sender.SendTemplate(ctx, state.UserID, "transfer_otp", map[string]string{
		"code":        code,
		"amount":      utils.FormatAmount(draft.Amount),
		"beneficiary": draft.ToBeneficiary.Name,
		"validity":    f.otpValidity,
	})
	if err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	return nil
}

func optionNames(options []models.Beneficiary) []string {
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.Name)
	}
	return names
}

// MaskAccount hides all but the last four digits of an account number.
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("X", len(account)-4) + account[len(account)-4:]
}
