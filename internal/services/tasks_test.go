package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

func TestSpendHandler_FiltersByCategory(t *testing.T) {
	transactions := []Transaction{
		{Date: "2024-05-01", Amount: 1200, Category: "groceries", Merchant: "FreshMart"},
		{Date: "2024-05-02", Amount: 300, Category: "groceries", Merchant: "FreshMart"},
		{Date: "2024-05-03", Amount: 800, Category: "dining", Merchant: "Spice Route"},
	}
	h := NewSpendHandler(transactions, &stubText{summary: "You spent ₹1500 on groceries."})

	resp, err := h.Handle(context.Background(), "u1", "How much on groceries?")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, "You spent ₹1500 on groceries.", resp.Message)
	assert.Equal(t, 1500.0, resp.Data["total_spend"])
	assert.Equal(t, 2, resp.Data["transactions"])
}

func TestSpendHandler_SummaryFailureUsesTotals(t *testing.T) {
	h := NewSpendHandler([]Transaction{{Amount: 99.5, Category: "fuel", Merchant: "Shell"}}, &stubText{err: assert.AnError})

	resp, err := h.Handle(context.Background(), "u1", "spending")
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹99.50 across 1 transactions.", resp.Message)
}

func TestRankAmounts(t *testing.T) {
	ranked := rankAmounts(map[string]float64{"a": 10, "b": 30, "c": 30, "d": 5}, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Name)
	assert.Equal(t, "c", ranked[1].Name)
	assert.Equal(t, "a", ranked[2].Name)
}

func TestFAQHandler(t *testing.T) {
	h := NewFAQHandler([]FAQEntry{
		{Question: "How do I reset my PIN?", Answer: "Use the app settings.", Keywords: []string{"pin", "reset"}},
		{Question: "What is the daily transfer limit?", Answer: "₹2,00,000 per day.", Keywords: []string{"limit"}},
	})

	resp, err := h.Handle(context.Background(), "u1", "what's my transfer limit")
	require.NoError(t, err)
	assert.Equal(t, "₹2,00,000 per day.", resp.Message)

	resp, err = h.Handle(context.Background(), "u1", "tell me a joke")
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "couldn't find")
}

func TestOffersHandler(t *testing.T) {
	resp, err := NewOffersHandler(nil).Handle(context.Background(), "u1", "offers")
	require.NoError(t, err)
	assert.Equal(t, "No offers available right now.", resp.Message)
}

func TestSuggestFollowUps(t *testing.T) {
	assert.Contains(t, SuggestFollowUps("You spent ₹500"), "Breakdown by category")
	assert.Contains(t, SuggestFollowUps("Your transfer is done"), "Initiate another transfer")
	assert.Len(t, SuggestFollowUps("hello"), 3)
}
