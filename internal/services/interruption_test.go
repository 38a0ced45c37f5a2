package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

func TestInterruptionDetector_ValidAnswersSkipClassification(t *testing.T) {
	draft := &models.TransferDraft{MultipleOptions: testDirectory()[:2]}
	tests := []struct {
		phase models.Phase
		input string
	}{
		{models.PhaseOTP, "123456"},
		{models.PhaseOTP, "resend"},
		{models.PhaseTransferSummary, "Yes"},
		{models.PhaseTransferSummary, "cancel"},
		{models.PhaseConfirmation, "no"},
		{models.PhaseAccountSelection, "Savings"},
		{models.PhaseAccountSelection, "current"},
		{models.PhaseBeneficiarySelection, "amy thomas"},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase)+"/"+tt.input, func(t *testing.T) {
			text := &stubText{intents: map[string]models.Intent{tt.input: models.IntentSpend}}
			detection, err := NewInterruptionDetector(text).Detect(context.Background(), tt.phase, tt.input, draft)
			require.NoError(t, err)
			assert.False(t, detection.Interrupted)
			assert.Zero(t, text.classify)
		})
	}
}

func TestInterruptionDetector_Detect(t *testing.T) {
	text := &stubText{intents: map[string]models.Intent{
		"show my spending":  models.IntentSpend,
		"any offers today?": models.IntentOffers,
	}}
	detector := NewInterruptionDetector(text)
	ctx := context.Background()

	detection, err := detector.Detect(ctx, models.PhaseOTP, "show my spending", nil)
	require.NoError(t, err)
	assert.True(t, detection.Interrupted)
	assert.Equal(t, models.IntentSpend, detection.NewIntent)

	detection, err = detector.Detect(ctx, models.PhaseConfirmation, "any offers today?", nil)
	require.NoError(t, err)
	assert.True(t, detection.Interrupted)
	assert.Equal(t, models.IntentOffers, detection.NewIntent)

	// unknown intent is not an interruption
	detection, err = detector.Detect(ctx, models.PhaseAccountSelection, "hmm", nil)
	require.NoError(t, err)
	assert.False(t, detection.Interrupted)

	// only sensitive phases are inspected
	before := text.classify
	detection, err = detector.Detect(ctx, models.PhaseNormal, "show my spending", nil)
	require.NoError(t, err)
	assert.False(t, detection.Interrupted)
	assert.Equal(t, before, text.classify)
}

func TestInterruptionDetector_ClassifierError(t *testing.T) {
	detector := NewInterruptionDetector(&stubText{err: errors.New("model down")})
	_, err := detector.Detect(context.Background(), models.PhaseOTP, "what?", nil)
	assert.Error(t, err)
}

func TestMatchOption(t *testing.T) {
	options := testDirectory()[:2]
	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{"full name", "Amy Thomas", "B002"},
		{"name ignores case", "  amy fernandes ", "B001"},
		{"id", "b001", "B001"},
		{"last four digits", "5432", "B002"},
		{"shared nickname", "amy", ""},
		{"unknown digits", "9999", ""},
		{"too many digits", "65432", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchOption(options, tt.input)
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchOption_DuplicateNamesBySuffix(t *testing.T) {
	options := []models.Beneficiary{
		{ID: "B101", Name: "Ravi Kumar", AccountNumber: "50100011110001"},
		{ID: "B102", Name: "Ravi Kumar", AccountNumber: "50100022220002"},
	}

	got, ok := matchOption(options, "0002")
	require.True(t, ok)
	assert.Equal(t, "B102", got.ID)

	got, ok = matchOption(options, "B101")
	require.True(t, ok)
	assert.Equal(t, "B101", got.ID)
}
