package services

import "strings"

// SuggestFollowUps picks up to three follow-up questions from the reply text.
func SuggestFollowUps(reply string) []string {
	text := strings.ToLower(reply)
	switch {
	case strings.Contains(text, "spent") || strings.Contains(text, "spending"):
		return []string{"Show me last month's spend", "Breakdown by category", "Top merchants I spent at"}
	case strings.Contains(text, "transfer"):
		return []string{"Check transfer status", "Initiate another transfer", "Cancel my last transfer"}
	case strings.Contains(text, "balance"):
		return []string{"Show account balance history", "Compare balance month over month", "Check minimum balance requirement"}
	}
	return []string{"Show me offers", "FAQ related to my account", "Help me with spending insights"}
}
