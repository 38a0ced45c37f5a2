package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateSecureOTP()
		require.NoError(t, err)
		assert.Len(t, code, OTPLength)
		assert.True(t, IsNumeric(code))
		assert.NotEqual(t, byte('0'), code[0])
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestOTPMatches(t *testing.T) {
	hash := HashOTP("user-1", "123456")

	assert.True(t, OTPMatches("user-1", "123456", hash))
	assert.True(t, OTPMatches("user-1", " 123456 ", hash))
	assert.False(t, OTPMatches("user-1", "654321", hash))
	assert.False(t, OTPMatches("user-2", "123456", hash))
}

func TestNormalizeConfirmation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"yes", Yes},
		{"Y", Yes},
		{" Confirm ", Yes},
		{"ok", Yes},
		{"proceed", Yes},
		{"confirm_yes", Yes},
		{"confirm-yes", Yes},
		{"no", No},
		{"N", No},
		{"cancel", No},
		{"abort", No},
		{"stop", No},
		{"confirm-no", No},
		{"Yes!", Yes},
		{"maybe", "maybe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeConfirmation(tt.input))
		})
	}
	assert.True(t, IsYesNo("OK"))
	assert.False(t, IsYesNo("what's my balance"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{"plain", "transfer 500 to amy", 500, true},
		{"rupee sign", "send ₹1,250.50 to mom", 1250.50, true},
		{"rs prefix", "pay rs. 75 to john", 75, true},
		{"skips zero", "send 0 then 40 to john", 40, true},
		{"missing", "send money to mom", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "500", FormatAmount(500))
	assert.Equal(t, "99.50", FormatAmount(99.5))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("004512"))
	assert.True(t, IsNumeric(" 42 "))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("12a4"))
	assert.False(t, IsNumeric("-12"))
}
