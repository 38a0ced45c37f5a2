package models

import (
	"strings"
	"time"
)

// AccountType is the source account of a transfer. The zero value means
// the user has not chosen one yet.
type AccountType string

const (
	AccountSavings AccountType = "Savings"
	AccountCurrent AccountType = "Current"
)

// ParseAccountType accepts "savings" or "current" in any case.
func ParseAccountType(s string) (AccountType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "savings", "saving":
		return AccountSavings, true
	case "current":
		return AccountCurrent, true
	}
	return "", false
}

type Frequency string

const (
	FrequencyOneTime   Frequency = "one-time"
	FrequencyRecurring Frequency = "recurring"
)

// ParseFrequency maps extractor output onto a frequency, defaulting to one-time.
func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recurring", "monthly", "weekly", "daily", "every month":
		return FrequencyRecurring
	}
	return FrequencyOneTime
}

// TransferDraft is the in-progress transfer owned by the conversation
// while it sits in one of the transfer phases.
type TransferDraft struct {
	Amount            float64          `json:"amount"`
	ToBeneficiaryName string           `json:"to_beneficiary_name"`
	ToBeneficiary     *Beneficiary     `json:"to_beneficiary,omitempty"`
	FromAccount       AccountType      `json:"from_account,omitempty"`
	Frequency         Frequency        `json:"frequency"`
	MultipleOptions   []Beneficiary    `json:"multiple_options,omitempty"`
	Summary           *TransferSummary `json:"summary,omitempty"`
}

// TransferSummary is shown to the user before the OTP step.
type TransferSummary struct {
	Amount        float64     `json:"amount"`
	FromAccount   AccountType `json:"from_account"`
	ToBeneficiary string      `json:"to_beneficiary"`
	ToAccount     string      `json:"to_account"`
	ToIFSC        string      `json:"to_ifsc"`
}

// Transfer is an executed transfer as recorded by the ledger.
type Transfer struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	UserID        string      `json:"user_id" gorm:"not null;index"`
	BeneficiaryID string      `json:"beneficiary_id" gorm:"index"`
	Beneficiary   string      `json:"beneficiary"`
	AccountNumber string      `json:"account_number"`
	IFSC          string      `json:"ifsc"`
	Amount        float64     `json:"amount" gorm:"not null"`
	FromAccount   AccountType `json:"from_account"`
	Frequency     Frequency   `json:"frequency"`
	Status        string      `json:"status" gorm:"default:'completed'"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TransferReceipt is what the ledger hands back after executing a transfer.
type TransferReceipt struct {
	TransactionID string      `json:"transaction_id"`
	BeneficiaryID string      `json:"beneficiary_id"`
	Beneficiary   string      `json:"beneficiary"`
	AccountNumber string      `json:"account"`
	IFSC          string      `json:"ifsc"`
	Amount        float64     `json:"amount"`
	FromAccount   AccountType `json:"from_account"`
	Timestamp     time.Time   `json:"timestamp"`
}
