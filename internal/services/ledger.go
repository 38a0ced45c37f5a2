package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
)

// TransferRequest is an authorized transfer ready for execution.
type TransferRequest struct {
	UserID      string
	Beneficiary models.Beneficiary
	Amount      float64
	FromAccount models.AccountType
	Frequency   models.Frequency
}

// LedgerService executes transfers. There is no payment network behind it;
// every transfer is recorded as completed.
type LedgerService struct {
	store storage.TransferStore
	now   func() time.Time
}

func NewLedgerService(store storage.TransferStore) *LedgerService {
	return &LedgerService{store: store, now: time.Now}
}

// PerformTransfer records the transfer and returns its receipt.
func (l *LedgerService) PerformTransfer(ctx context.Context, req TransferRequest) (*models.TransferReceipt, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid transfer amount %.2f", req.Amount)
	}

	now := l.now()
	transfer := &models.Transfer{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		BeneficiaryID: req.Beneficiary.ID,
		Beneficiary:   req.Beneficiary.Name,
		AccountNumber: req.Beneficiary.AccountNumber,
		IFSC:          req.Beneficiary.IFSC,
		Amount:        req.Amount,
		FromAccount:   req.FromAccount,
		Frequency:     req.Frequency,
		Status:        "completed",
		CreatedAt:     now,
	}
	if err := l.store.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	log.Printf("💸 Transfer %s: %.2f from %s to %s for %s", transfer.ID, req.Amount, req.FromAccount, req.Beneficiary.Name, req.UserID)
	return &models.TransferReceipt{
		TransactionID: transfer.ID,
		BeneficiaryID: req.Beneficiary.ID,
		Beneficiary:   req.Beneficiary.Name,
		AccountNumber: req.Beneficiary.AccountNumber,
		IFSC:          req.Beneficiary.IFSC,
		Amount:        req.Amount,
		FromAccount:   req.FromAccount,
		Timestamp:     now,
	}, nil
}

// History lists a user's executed transfers, newest first.
func (l *LedgerService) History(ctx context.Context, userID string) ([]*models.Transfer, error) {
	return l.store.GetTransfersByUser(ctx, userID)
}
