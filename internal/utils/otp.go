package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// OTPLength is the number of digits in a generated passcode.
const OTPLength = 6

// GenerateSecureOTP generates a cryptographically secure 6-digit OTP
func GenerateSecureOTP() (string, error) {
	// Random number in [100000, 999999] so the code never starts with zero
	max := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashOTP returns the hex SHA-256 of a passcode bound to its user.
func HashOTP(userID, code string) string {
	sum := sha256.Sum256([]byte(userID + ":" + strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// OTPMatches compares a submitted code against a stored hash in constant time.
func OTPMatches(userID, code, storedHash string) bool {
	candidate := HashOTP(userID, code)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
