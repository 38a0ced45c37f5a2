package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

// MemoryStore holds all data in memory. Used for local runs and tests.
type MemoryStore struct {
	conversations map[string][]byte
	otps          map[string]models.OTPRecord
	beneficiaries []models.Beneficiary
	transfers     map[string][]*models.Transfer

	// Mutexes for thread safety
	conversationMu sync.RWMutex
	otpMu          sync.RWMutex
	beneficiaryMu  sync.RWMutex
	transferMu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]byte),
		otps:          make(map[string]models.OTPRecord),
		transfers:     make(map[string][]*models.Transfer),
	}
}

// Conversation operations. States are stored encoded so callers never
// share a pointer with the store.
func (m *MemoryStore) LoadConversation(ctx context.Context, userID string) (*models.ConversationState, error) {
	m.conversationMu.RLock()
	raw, ok := m.conversations[userID]
	m.conversationMu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var state models.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", userID, err)
	}
	state.Normalize()
	return &state, nil
}

func (m *MemoryStore) SaveConversation(ctx context.Context, state *models.ConversationState) error {
	if state == nil || state.UserID == "" {
		return fmt.Errorf("conversation state requires a user id")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", state.UserID, err)
	}

	m.conversationMu.Lock()
	defer m.conversationMu.Unlock()
	m.conversations[state.UserID] = raw
	return nil
}

func (m *MemoryStore) DeleteConversation(ctx context.Context, userID string) error {
	m.conversationMu.Lock()
	defer m.conversationMu.Unlock()
	delete(m.conversations, userID)
	return nil
}

// OTP operations
func (m *MemoryStore) SaveOTP(ctx context.Context, record *models.OTPRecord) error {
	m.otpMu.Lock()
	defer m.otpMu.Unlock()
	m.otps[record.UserID] = *record
	return nil
}

func (m *MemoryStore) GetOTP(ctx context.Context, userID string) (*models.OTPRecord, error) {
	m.otpMu.RLock()
	defer m.otpMu.RUnlock()
	record, ok := m.otps[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (m *MemoryStore) DeleteOTP(ctx context.Context, userID string) error {
	m.otpMu.Lock()
	defer m.otpMu.Unlock()
	delete(m.otps, userID)
	return nil
}

func (m *MemoryStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	m.otpMu.Lock()
	defer m.otpMu.Unlock()

	var purged int64
	for userID, record := range m.otps {
		if record.Expired(now) {
			delete(m.otps, userID)
			purged++
		}
	}
	return purged, nil
}

// Beneficiary operations
func (m *MemoryStore) SeedBeneficiaries(ctx context.Context, beneficiaries []models.Beneficiary) error {
	m.beneficiaryMu.Lock()
	defer m.beneficiaryMu.Unlock()
	m.beneficiaries = append([]models.Beneficiary(nil), beneficiaries...)
	return nil
}

func (m *MemoryStore) ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error) {
	m.beneficiaryMu.RLock()
	defer m.beneficiaryMu.RUnlock()
	return append([]models.Beneficiary(nil), m.beneficiaries...), nil
}

// Transfer operations
func (m *MemoryStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = time.Now()
	}
	copied := *transfer

	m.transferMu.Lock()
	defer m.transferMu.Unlock()
	m.transfers[transfer.UserID] = append(m.transfers[transfer.UserID], &copied)
	return nil
}

func (m *MemoryStore) GetTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error) {
	m.transferMu.RLock()
	defer m.transferMu.RUnlock()

	result := make([]*models.Transfer, 0, len(m.transfers[userID]))
	for _, t := range m.transfers[userID] {
		copied := *t
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
