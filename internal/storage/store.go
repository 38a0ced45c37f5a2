package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// ConversationStore holds one ConversationState per user.
type ConversationStore interface {
	LoadConversation(ctx context.Context, userID string) (*models.ConversationState, error)
	SaveConversation(ctx context.Context, state *models.ConversationState) error
	DeleteConversation(ctx context.Context, userID string) error
}

// OTPStore holds at most one outstanding passcode record per user.
type OTPStore interface {
	SaveOTP(ctx context.Context, record *models.OTPRecord) error
	GetOTP(ctx context.Context, userID string) (*models.OTPRecord, error)
	DeleteOTP(ctx context.Context, userID string) error
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// BeneficiaryStore is the read-only payee directory.
type BeneficiaryStore interface {
	ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error)
}

// TransferStore records executed transfers.
type TransferStore interface {
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	GetTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error)
}

// Store defines the interface for storage operations
type Store interface {
	ConversationStore
	OTPStore
	BeneficiaryStore
	TransferStore

	SeedBeneficiaries(ctx context.Context, beneficiaries []models.Beneficiary) error
	Ping(ctx context.Context) error
}
