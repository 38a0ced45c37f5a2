package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
)

const testOTP = "123456"

func testDirectory() []models.Beneficiary {
	return []models.Beneficiary{
		{ID: "B001", Name: "Amy Fernandes", Nickname: "amy", AccountNumber: "50100012345671", IFSC: "HDFC0001234"},
		{ID: "B002", Name: "Amy Thomas", Nickname: "amy", AccountNumber: "30211198765432", IFSC: "SBIN0004567"},
		{ID: "B003", Name: "Lakshmi Rao", Nickname: "mom", AccountNumber: "91823746501928", IFSC: "ICIC0000789"},
		{ID: "B004", Name: "John Mathew", Nickname: "john", AccountNumber: "11122233344455", IFSC: "UTIB0000321"},
	}
}

func seededStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	_ = store.SeedBeneficiaries(context.Background(), testDirectory())
	return store
}

func fixedOTPService(store storage.OTPStore) *OTPService {
	svc := NewOTPService(store, 2*time.Minute)
	svc.generate = func() (string, error) { return testOTP, nil }
	return svc
}

type sentTemplate struct {
	userID string
	name   string
	params map[string]string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentTemplate
	err  error
}

func (r *recordingSender) SendTemplate(ctx context.Context, userID, templateName string, params map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentTemplate{userID: userID, name: templateName, params: params})
	return r.err
}

func (r *recordingSender) named(name string) []sentTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentTemplate
	for _, s := range r.sent {
		if s.name == name {
			out = append(out, s)
		}
	}
	return out
}

type failingLedger struct{}

func (failingLedger) PerformTransfer(ctx context.Context, req TransferRequest) (*models.TransferReceipt, error) {
	return nil, errors.New("core banking unavailable")
}

type panickingLedger struct{}

func (panickingLedger) PerformTransfer(ctx context.Context, req TransferRequest) (*models.TransferReceipt, error) {
	panic("ledger exploded")
}

// stubText answers from fixed tables and counts calls.
type stubText struct {
	mu       sync.Mutex
	intents  map[string]models.Intent
	details  TransferDetails
	err      error
	summary  string
	classify int
	extract  int
}

func (s *stubText) Classify(ctx context.Context, text string) (models.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classify++
	if s.err != nil {
		return models.IntentUnknown, s.err
	}
	if intent, ok := s.intents[text]; ok {
		return intent, nil
	}
	return models.IntentUnknown, nil
}

func (s *stubText) ExtractTransferDetails(ctx context.Context, text string) (TransferDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extract++
	if s.err != nil {
		return TransferDetails{}, s.err
	}
	return s.details, nil
}

func (s *stubText) Summarize(ctx context.Context, result interface{}, query string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}
