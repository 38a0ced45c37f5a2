package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

const (
	defaultTurnTimeout = 45 * time.Second

	genericErrorMessage = "Something went wrong while processing your request. Please try again."
	unknownIntentReply  = "Sorry, I didn't understand your request. Could you please rephrase that? " +
		"You can ask me about spending, transfers, offers, or other financial questions."
)

// TurnResult is what a caller gets back for one turn.
type TurnResult struct {
	Status   string          `json:"status"`
	Response models.Response `json:"response"`
	Phase    models.Phase    `json:"phase"`
}

// ConversationService is the per-user phase state machine. It decides how
// each turn is interpreted and owns recovery when a step fails.
type ConversationService struct {
	store    storage.ConversationStore
	sessions *SessionManager
	text     TextService
	detector *InterruptionDetector
	flow     *TransferFlow
	tasks    map[models.Intent]TaskHandler
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time
}

// ConversationDeps groups the state machine's collaborators.
type ConversationDeps struct {
	Store    storage.ConversationStore
	Sessions *SessionManager
	Text     TextService
	Flow     *TransferFlow
	Spend    TaskHandler
	FAQ      TaskHandler
	Offers   TaskHandler
	Metrics  *Metrics
	Timeout  time.Duration
}

func NewConversationService(deps ConversationDeps) *ConversationService {
	if deps.Sessions == nil {
		deps.Sessions = NewSessionManager(0)
	}
	if deps.Timeout <= 0 {
		if d, err := time.ParseDuration(os.Getenv("COLLABORATOR_TIMEOUT")); err == nil && d > 0 {
			deps.Timeout = d
		} else {
			deps.Timeout = defaultTurnTimeout
		}
	}

	tasks := map[models.Intent]TaskHandler{}
	if deps.Spend != nil {
		tasks[models.IntentSpend] = deps.Spend
	}
	if deps.FAQ != nil {
		tasks[models.IntentFAQ] = deps.FAQ
	}
	if deps.Offers != nil {
		tasks[models.IntentOffers] = deps.Offers
	}

	return &ConversationService{
		store:    deps.Store,
		sessions: deps.Sessions,
		text:     deps.Text,
		detector: NewInterruptionDetector(deps.Text),
		flow:     deps.Flow,
		tasks:    tasks,
		metrics:  deps.Metrics,
		timeout:  deps.Timeout,
		now:      time.Now,
	}
}

// Sessions exposes the session manager for housekeeping and health checks.
func (s *ConversationService) Sessions() *SessionManager {
	return s.sessions
}

// HandleTurn processes one user utterance. otp, when set, is used as the
// input while the conversation waits for a passcode.
func (s *ConversationService) HandleTurn(ctx context.Context, userID, text, otp string) (TurnResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return TurnResult{}, fmt.Errorf("user id is required")
	}

	release := s.sessions.Acquire(userID)
	defer release()

	turnCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state, err := s.load(turnCtx, userID)
	if err != nil {
		log.Printf("❌ Failed to load conversation for %s: %v", userID, err)
		return s.failure(models.PhaseNormal), nil
	}

	input := strings.TrimSpace(text)
	if otp = strings.TrimSpace(otp); otp != "" && (state.Phase == models.PhaseOTP || input == "") {
		input = otp
	}
	state.LastInput = input

	from := state.Phase
	resp, err := s.safeDispatch(turnCtx, state, input)
	if err != nil {
		log.Printf("❌ Turn failed for %s in %s, resetting to NORMAL: %v", userID, from, err)
		if from.IsTransfer() || from == models.PhaseInterruptionConfirmation {
			s.metrics.ObserveTransfer(models.StatusError)
		}
		state.ClearTransfer()
		state.InterruptedState = nil
		resp = models.Response{Status: models.StatusError, Message: genericErrorMessage}
	}
	if resp.Intent == "" {
		resp.Intent = state.Intent
	}

	state.LastResult = &resp
	state.UpdatedAt = s.now()
	if err := s.store.SaveConversation(ctx, state); err != nil {
		log.Printf("❌ Failed to save conversation for %s: %v", userID, err)
		return s.failure(from), nil
	}

	s.metrics.ObserveTransition(from, state.Phase)
	s.metrics.ObserveTurn(state.Phase, resp.Status)
	log.Printf("Turn for %s: %s -> %s (%s)", userID, from, state.Phase, resp.Status)

	return TurnResult{Status: resp.Status, Response: resp, Phase: state.Phase}, nil
}

// Cancel force-resets the user's conversation to defaults.
func (s *ConversationService) Cancel(ctx context.Context, userID string) (TurnResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return TurnResult{}, fmt.Errorf("user id is required")
	}

	release := s.sessions.Acquire(userID)
	defer release()

	if err := s.flow.Abandon(ctx, userID); err != nil {
		log.Printf("⚠️ Failed to discard OTP for %s: %v", userID, err)
	}

	state := models.NewConversationState(userID)
	if err := s.store.SaveConversation(ctx, state); err != nil {
		return TurnResult{}, fmt.Errorf("reset conversation: %w", err)
	}
	log.Printf("Conversation reset for %s", userID)

	resp := models.Response{Status: models.StatusSuccess, Message: "Conversation reset.", Intent: models.IntentUnknown}
	return TurnResult{Status: resp.Status, Response: resp, Phase: state.Phase}, nil
}

// State returns the persisted state for userID, or the default state.
func (s *ConversationService) State(ctx context.Context, userID string) (*models.ConversationState, error) {
	return s.load(ctx, userID)
}

func (s *ConversationService) load(ctx context.Context, userID string) (*models.ConversationState, error) {
	state, err := s.store.LoadConversation(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.NewConversationState(userID), nil
	}
	if err != nil {
		return nil, err
	}
	state.UserID = userID
	state.Normalize()
	return state, nil
}

func (s *ConversationService) failure(phase models.Phase) TurnResult {
	return TurnResult{
		Status:   models.StatusError,
		Response: models.Response{Status: models.StatusError, Message: genericErrorMessage},
		Phase:    phase,
	}
}

// safeDispatch converts a panic in any step into an error.
func (s *ConversationService) safeDispatch(ctx context.Context, state *models.ConversationState, input string) (resp models.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in turn for %s: %v\n%s", state.UserID, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.dispatch(ctx, state, input)
}

func (s *ConversationService) dispatch(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	if state.Phase.IsSensitive() {
		detection, err := s.detector.Detect(ctx, state.Phase, input, state.PendingTransfer)
		if err != nil {
			return models.Response{}, fmt.Errorf("interruption detection: %w", err)
		}
		if detection.Interrupted {
			return s.interrupt(state, detection.NewIntent, input), nil
		}
	}

	switch state.Phase {
	case models.PhaseBeneficiarySelection:
		return s.flow.SelectBeneficiary(ctx, state, input)
	case models.PhaseAccountSelection:
		return s.flow.SelectAccount(ctx, state, input)
	case models.PhaseTransferSummary:
		return s.flow.ConfirmSummary(ctx, state, input)
	case models.PhaseOTP:
		return s.flow.ValidateOTP(ctx, state, input)
	case models.PhaseConfirmation:
		return s.flow.ConfirmRecurring(ctx, state, utils.NormalizeConfirmation(input))
	case models.PhaseInterruptionConfirmation:
		return s.resolveInterruption(ctx, state, input)
	}
	return s.handleNormal(ctx, state, input)
}

func (s *ConversationService) handleNormal(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	if input == "" {
		state.Intent = models.IntentUnknown
		return models.Response{Status: models.StatusError, Message: unknownIntentReply}, nil
	}
	intent, err := s.text.Classify(ctx, input)
	if err != nil {
		return models.Response{}, fmt.Errorf("classify: %w", err)
	}
	return s.route(ctx, state, intent, input)
}

// route sends a NORMAL-phase request to its handler.
func (s *ConversationService) route(ctx context.Context, state *models.ConversationState, intent models.Intent, input string) (models.Response, error) {
	state.Intent = intent
	if intent == models.IntentTransfer {
		return s.flow.Initiate(ctx, state, input)
	}

	handler, ok := s.tasks[intent]
	if !ok {
		state.Intent = models.IntentUnknown
		return models.Response{Status: models.StatusError, Message: unknownIntentReply}, nil
	}
	resp, err := handler.Handle(ctx, state.UserID, input)
	if err != nil {
		return models.Response{}, fmt.Errorf("%s handler: %w", intent, err)
	}
	resp.Intent = intent
	if len(resp.Suggestions) == 0 {
		resp.Suggestions = SuggestFollowUps(resp.Message)
	}
	return resp, nil
}

// interrupt parks the active flow and asks whether to switch tasks.
func (s *ConversationService) interrupt(state *models.ConversationState, newIntent models.Intent, input string) models.Response {
	s.metrics.ObserveInterruption(state.Phase, newIntent)
	log.Printf("Interruption for %s in %s: new intent %s", state.UserID, state.Phase, newIntent)

	state.InterruptedState = &models.SavedContext{
		Phase:               state.Phase,
		Intent:              state.Intent,
		PendingTransfer:     state.PendingTransfer,
		ConfirmationContext: state.ConfirmationContext,
		OTPAttempts:         state.OTPAttempts,
		SelectionAttempts:   state.SelectionAttempts,
		NewIntent:           newIntent,
		Input:               input,
	}
	state.PendingTransfer = nil
	state.ConfirmationContext = nil
	state.OTPAttempts = 0
	state.SelectionAttempts = 0
	state.Phase = models.PhaseInterruptionConfirmation
	state.Intent = models.IntentInterruptionConfirmation

	return models.Response{
		Status: models.StatusInterruption,
		Message: fmt.Sprintf("It looks like you want to ask about %s. Do you want to leave the current %s and start a new task? (yes/no)",
			describeIntent(newIntent), describePhase(state.InterruptedState.Phase)),
		Options: []string{"yes", "no"},
	}
}

// resolveInterruption applies the user's answer to the switch-task prompt.
func (s *ConversationService) resolveInterruption(ctx context.Context, state *models.ConversationState, input string) (models.Response, error) {
	saved := state.InterruptedState
	if saved == nil {
		state.ClearTransfer()
		return models.Response{Status: models.StatusError, Message: "No interrupted task found."}, nil
	}

	switch utils.NormalizeConfirmation(input) {
	case utils.Yes:
		state.InterruptedState = nil
		state.ClearTransfer()
		if saved.Phase.IsTransfer() || saved.Phase == models.PhaseConfirmation {
			s.metrics.ObserveTransfer("abandoned")
		}
		if saved.Phase == models.PhaseOTP {
			if err := s.flow.Abandon(ctx, state.UserID); err != nil {
				return models.Response{}, err
			}
		}
		log.Printf("User %s abandoned %s for %s", state.UserID, saved.Phase, saved.NewIntent)
		return s.route(ctx, state, saved.NewIntent, saved.Input)

	case utils.No:
		state.InterruptedState = nil
		state.Phase = models.ParsePhase(string(saved.Phase))
		state.Intent = saved.Intent
		state.PendingTransfer = saved.PendingTransfer
		state.ConfirmationContext = saved.ConfirmationContext
		state.OTPAttempts = saved.OTPAttempts
		state.SelectionAttempts = saved.SelectionAttempts
		if state.Phase.IsTransfer() && state.PendingTransfer == nil {
			state.ClearTransfer()
			return models.Response{Status: models.StatusError, Message: "Transfer details not found. Please restart."}, nil
		}
		return s.flow.Reprompt(state), nil
	}

	return models.Response{
		Status:  models.StatusInterruption,
		Message: "Please answer 'yes' to start a new task or 'no' to continue with the current one.",
		Options: []string{"yes", "no"},
	}, nil
}

func describeIntent(intent models.Intent) string {
	switch intent {
	case models.IntentSpend:
		return "your spending"
	case models.IntentFAQ:
		return "a general question"
	case models.IntentOffers:
		return "offers"
	case models.IntentTransfer:
		return "a new transfer"
	}
	return string(intent)
}

func describePhase(phase models.Phase) string {
	if phase == models.PhaseConfirmation {
		return "recurring transfer confirmation"
	}
	return "transfer"
}
