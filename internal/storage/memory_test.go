package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

func TestMemoryStore_ConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.LoadConversation(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	state := models.NewConversationState("u1")
	state.Phase = models.PhaseOTP
	state.OTPAttempts = 1
	state.PendingTransfer = &models.TransferDraft{
		Amount:        500,
		ToBeneficiary: &models.Beneficiary{ID: "B003", Name: "Lakshmi Rao"},
		FromAccount:   models.AccountSavings,
		Frequency:     models.FrequencyOneTime,
	}
	require.NoError(t, store.SaveConversation(ctx, state))

	// the store keeps its own copy
	state.PendingTransfer.Amount = 1

	loaded, err := store.LoadConversation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseOTP, loaded.Phase)
	assert.Equal(t, 1, loaded.OTPAttempts)
	require.NotNil(t, loaded.PendingTransfer)
	assert.Equal(t, 500.0, loaded.PendingTransfer.Amount)
	assert.Equal(t, "B003", loaded.PendingTransfer.ToBeneficiary.ID)

	require.NoError(t, store.DeleteConversation(ctx, "u1"))
	_, err = store.LoadConversation(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SaveConversationRequiresUser(t *testing.T) {
	assert.Error(t, NewMemoryStore().SaveConversation(context.Background(), &models.ConversationState{}))
}

func TestMemoryStore_OTPs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveOTP(ctx, &models.OTPRecord{UserID: "a", CodeHash: "h1", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.SaveOTP(ctx, &models.OTPRecord{UserID: "b", CodeHash: "h2", ExpiresAt: now.Add(time.Minute)}))

	purged, err := store.DeleteExpiredOTPs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = store.GetOTP(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	record, err := store.GetOTP(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "h2", record.CodeHash)

	require.NoError(t, store.DeleteOTP(ctx, "b"))
	_, err = store.GetOTP(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TransfersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateTransfer(ctx, &models.Transfer{ID: "t1", UserID: "u1", Amount: 10, CreatedAt: base}))
	require.NoError(t, store.CreateTransfer(ctx, &models.Transfer{ID: "t2", UserID: "u1", Amount: 20, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.CreateTransfer(ctx, &models.Transfer{ID: "t3", UserID: "u2", Amount: 30, CreatedAt: base}))

	transfers, err := store.GetTransfersByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, "t2", transfers[0].ID)
	assert.Equal(t, "t1", transfers[1].ID)

	none, err := store.GetTransfersByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_Beneficiaries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed := []models.Beneficiary{{ID: "B001", Name: "Amy Fernandes"}}
	require.NoError(t, store.SeedBeneficiaries(ctx, seed))

	seed[0].Name = "changed"
	list, err := store.ListBeneficiaries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Amy Fernandes", list[0].Name)
	assert.NoError(t, store.Ping(ctx))
}
