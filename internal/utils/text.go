package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	Yes = "yes"
	No  = "no"
)

var (
	yesVariants = map[string]bool{
		"confirm_yes": true, "confirm-yes": true, "y": true, "yes": true,
		"confirm": true, "ok": true, "proceed": true,
	}
	noVariants = map[string]bool{
		"confirm_no": true, "confirm-no": true, "n": true, "no": true,
		"cancel": true, "abort": true, "stop": true,
	}

	amountPattern = regexp.MustCompile(`(?:₹|rs\.?|inr)?\s*(\d[\d,]*(?:\.\d+)?)`)
)

// NormalizeConfirmation maps yes/no synonyms onto "yes" or "no". Any other
// input is returned lowercased and trimmed.
func NormalizeConfirmation(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!")
	switch {
	case yesVariants[normalized]:
		return Yes
	case noVariants[normalized]:
		return No
	}
	return normalized
}

// IsYesNo reports whether input normalizes to a yes or a no.
func IsYesNo(input string) bool {
	n := NormalizeConfirmation(input)
	return n == Yes || n == No
}

// ParseAmount pulls the first positive amount out of free text.
// Thousands separators and a leading currency marker are accepted.
func ParseAmount(text string) (float64, bool) {
	for _, m := range amountPattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil && v > 0 && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

// FormatAmount renders an amount without a trailing ".00" for whole values.
func FormatAmount(amount float64) string {
	if amount == math.Trunc(amount) {
		return strconv.FormatFloat(amount, 'f', 0, 64)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
