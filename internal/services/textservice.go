package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

// ErrMalformedOutput is returned when a model reply cannot be parsed.
var ErrMalformedOutput = errors.New("malformed text service output")

// TransferDetails are the slots extracted from a transfer request.
type TransferDetails struct {
	Amount        float64            `json:"amount"`
	ToBeneficiary string             `json:"to_beneficiary"`
	FromAccount   models.AccountType `json:"from_account"`
	Frequency     models.Frequency   `json:"frequency"`
}

// TextService is the natural-language collaborator: classification, slot
// extraction and reply summarization.
type TextService interface {
	Classify(ctx context.Context, text string) (models.Intent, error)
	ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error)
	Summarize(ctx context.Context, result interface{}, query string) (string, error)
}

const (
	classifySystemPrompt = "You are an intent classifier for a banking assistant."
	classifyPrompt       = `Classify this user query into exactly one category: spend, faq, offers, transfer, or unknown.
Query: %q
Return ONLY the single-word category label, nothing else.`

	extractSystemPrompt = "You are a precise information extraction engine."
	extractPrompt       = `Extract structured transfer details from the following user query:

%q

Return ONLY a valid JSON object with exactly these keys:
- amount: number or null
- to_beneficiary: string or null
- from_account: "Savings", "Current", or null
- frequency: "one-time" or "recurring"

Rules:
1. Amount can appear as ₹100, Rs 100, $100, or just 100. Extract the numeric value only.
2. to_beneficiary is the recipient name or nickname (e.g. "mom", "john").
3. from_account is "Savings" if the text mentions savings, "Current" if it mentions current, otherwise null.
4. frequency is "recurring" if the text has "monthly", "every month" or "recurring", otherwise "one-time".`

	summarizeSystemPrompt = "You are a helpful banking assistant. Answer in two or three short sentences using only the data provided."
	summarizePrompt       = `The user asked: %q

Data:
%s

Write a short, friendly answer for the user.`
)

// ---------------------------------------------------------------------------
// Keyword heuristic
// ---------------------------------------------------------------------------

type keywordRule struct {
	intent   models.Intent
	keywords []string
}

// Order matters: the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{models.IntentTransfer, []string{"transfer", "send", "pay", "remit"}},
	{models.IntentSpend, []string{"spend", "transactions", "spending", "expense"}},
	{models.IntentOffers, []string{"offer", "discount", "promo", "deal", "coupon"}},
	{models.IntentFAQ, []string{"how", "what", "why", "when", "where", "faq", "help"}},
}

var (
	beneficiaryPattern = regexp.MustCompile(`\bto\s+`)
	beneficiaryStops   = map[string]bool{
		"from": true, "using": true, "via": true, "with": true, "monthly": true,
		"every": true, "each": true, "on": true, "today": true, "now": true,
		"recurring": true, "weekly": true, "daily": true, "account": true, "please": true,
	}
	recurringMarkers = []string{"monthly", "every month", "recurring", "weekly", "every week"}
)

// KeywordTextService is the deterministic fallback. It never returns an error.
type KeywordTextService struct{}

func NewKeywordTextService() *KeywordTextService {
	return &KeywordTextService{}
}

func (k *KeywordTextService) Classify(ctx context.Context, text string) (models.Intent, error) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return models.IntentUnknown, nil
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent, nil
			}
		}
	}
	return models.IntentUnknown, nil
}

func (k *KeywordTextService) ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	details := TransferDetails{Frequency: models.FrequencyOneTime}

	if amount, ok := utils.ParseAmount(lower); ok {
		details.Amount = amount
	}
	details.ToBeneficiary = extractPayee(lower)
	switch {
	case strings.Contains(lower, "saving"):
		details.FromAccount = models.AccountSavings
	case strings.Contains(lower, "current"):
		details.FromAccount = models.AccountCurrent
	}
	for _, marker := range recurringMarkers {
		if strings.Contains(lower, marker) {
			details.Frequency = models.FrequencyRecurring
			break
		}
	}
	return details, nil
}

// extractPayee returns the words after the last "to" that is followed by a
// name, stopping at the first qualifier such as "from" or "monthly".
func extractPayee(lower string) string {
	matches := beneficiaryPattern.FindAllStringIndex(lower, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		var name []string
		for _, word := range strings.Fields(lower[matches[i][1]:]) {
			word = strings.Trim(word, ".,!?;:\"'")
			if word == "" || beneficiaryStops[word] || utils.IsNumeric(word) {
				break
			}
			name = append(name, word)
		}
		if len(name) > 0 {
			return strings.Join(name, " ")
		}
	}
	return ""
}

// Summarize renders the structured result as plain text.
func (k *KeywordTextService) Summarize(ctx context.Context, result interface{}, query string) (string, error) {
	return renderFacts(result), nil
}

// renderFacts turns a task result into readable text for a prompt or a
// fallback reply.
func renderFacts(result interface{}) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", key, v[key]))
		}
		return strings.Join(lines, "\n")
	}
	raw, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return strings.TrimSpace(string(raw))
}

// ---------------------------------------------------------------------------
// Model-backed service
// ---------------------------------------------------------------------------

// completer is a single prompt/response round trip against a model provider.
type completer interface {
	complete(ctx context.Context, system, prompt string, wantJSON bool) (string, error)
}

// LLMTextService implements TextService over a provider completer.
type LLMTextService struct {
	provider string
	client   completer
}

func (l *LLMTextService) Provider() string {
	return l.provider
}

func (l *LLMTextService) Classify(ctx context.Context, text string) (models.Intent, error) {
	if strings.TrimSpace(text) == "" {
		return models.IntentUnknown, nil
	}
	raw, err := l.client.complete(ctx, classifySystemPrompt, fmt.Sprintf(classifyPrompt, text), false)
	if err != nil {
		return models.IntentUnknown, err
	}
	return parseIntentLabel(raw)
}

func (l *LLMTextService) ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error) {
	raw, err := l.client.complete(ctx, extractSystemPrompt, fmt.Sprintf(extractPrompt, text), true)
	if err != nil {
		return TransferDetails{}, err
	}
	return parseTransferDetails(raw)
}

func (l *LLMTextService) Summarize(ctx context.Context, result interface{}, query string) (string, error) {
	raw, err := l.client.complete(ctx, summarizeSystemPrompt, fmt.Sprintf(summarizePrompt, query, renderFacts(result)), false)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", ErrMalformedOutput
	}
	return reply, nil
}

// parseIntentLabel accepts a bare label, a label followed by noise, or a
// JSON object with an "intent" key.
func parseIntentLabel(raw string) (models.Intent, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil {
			trimmed = wrapped.Intent
		}
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return models.IntentUnknown, ErrMalformedOutput
	}
	label := strings.Trim(fields[0], "\"'`.,:;")
	if label == string(models.IntentUnknown) {
		return models.IntentUnknown, nil
	}
	intent := models.ParseIntent(label)
	if intent == models.IntentUnknown {
		return models.IntentUnknown, fmt.Errorf("%w: unexpected label %q", ErrMalformedOutput, label)
	}
	return intent, nil
}

// parseTransferDetails decodes the extractor's JSON reply, tolerating
// surrounding prose and string-typed amounts.
func parseTransferDetails(raw string) (TransferDetails, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return TransferDetails{}, ErrMalformedOutput
	}

	var parsed struct {
		Amount        interface{} `json:"amount"`
		ToBeneficiary *string     `json:"to_beneficiary"`
		FromAccount   *string     `json:"from_account"`
		Frequency     *string     `json:"frequency"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return TransferDetails{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	details := TransferDetails{Frequency: models.FrequencyOneTime}
	switch amount := parsed.Amount.(type) {
	case float64:
		if amount > 0 {
			details.Amount = amount
		}
	case string:
		if v, ok := utils.ParseAmount(amount); ok {
			details.Amount = v
		}
	}
	if parsed.ToBeneficiary != nil {
		details.ToBeneficiary = strings.TrimSpace(*parsed.ToBeneficiary)
	}
	if parsed.FromAccount != nil {
		lower := strings.ToLower(*parsed.FromAccount)
		switch {
		case strings.Contains(lower, "saving"):
			details.FromAccount = models.AccountSavings
		case strings.Contains(lower, "current"):
			details.FromAccount = models.AccountCurrent
		}
	}
	if parsed.Frequency != nil {
		details.Frequency = models.ParseFrequency(*parsed.Frequency)
	}
	return details, nil
}

// ---------------------------------------------------------------------------
// Fallback policy
// ---------------------------------------------------------------------------

// FallbackTextService consults the primary service first and falls back to
// the deterministic one when the primary errors or returns unusable output.
type FallbackTextService struct {
	primary  TextService
	fallback TextService
	provider string
	timeout  time.Duration
	metrics  *Metrics
}

// NewFallbackTextService composes primary and fallback. A nil primary
// means only the fallback is used.
func NewFallbackTextService(primary, fallback TextService, provider string, timeout time.Duration, metrics *Metrics) *FallbackTextService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &FallbackTextService{
		primary:  primary,
		fallback: fallback,
		provider: provider,
		timeout:  timeout,
		metrics:  metrics,
	}
}

func (f *FallbackTextService) Provider() string {
	if f.primary == nil {
		return "heuristic"
	}
	return f.provider
}

func (f *FallbackTextService) Classify(ctx context.Context, text string) (models.Intent, error) {
	if f.primary != nil {
		var intent models.Intent
		err := f.call(ctx, "classify", func(ctx context.Context) error {
			var err error
			intent, err = f.primary.Classify(ctx, text)
			return err
		})
		if err == nil {
			return intent, nil
		}
		log.Printf("⚠️  %s classify failed, using keyword fallback: %v", f.provider, err)
	}
	return f.fallback.Classify(ctx, text)
}

func (f *FallbackTextService) ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error) {
	if f.primary != nil {
		var details TransferDetails
		err := f.call(ctx, "extract", func(ctx context.Context) error {
			var err error
			details, err = f.primary.ExtractTransferDetails(ctx, text)
			return err
		})
		if err == nil && details.Amount > 0 && details.ToBeneficiary != "" {
			return details, nil
		}
		if err != nil {
			log.Printf("⚠️  %s extraction failed, using keyword fallback: %v", f.provider, err)
		}
	}
	return f.fallback.ExtractTransferDetails(ctx, text)
}

func (f *FallbackTextService) Summarize(ctx context.Context, result interface{}, query string) (string, error) {
	if f.primary != nil {
		var reply string
		err := f.call(ctx, "summarize", func(ctx context.Context) error {
			var err error
			reply, err = f.primary.Summarize(ctx, result, query)
			return err
		})
		if err == nil {
			return reply, nil
		}
		log.Printf("⚠️  %s summarize failed, using plain rendering: %v", f.provider, err)
	}
	return f.fallback.Summarize(ctx, result, query)
}

// call runs one primary operation under the service timeout and records it.
func (f *FallbackTextService) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	f.metrics.ObserveTextService(f.provider, operation, err, time.Since(start))
	return err
}
