package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/services"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
)

type fakeReplies struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (f *fakeReplies) SendWhatsAppMessage(to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string][]string{}
	}
	f.sent[to] = append(f.sent[to], message)
	return nil
}

type testEnv struct {
	app      *fiber.App
	store    *storage.MemoryStore
	sessions *services.SessionManager
	replies  *fakeReplies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SeedBeneficiaries(context.Background(), []models.Beneficiary{
		{ID: "B003", Name: "Lakshmi Rao", Nickname: "mom", AccountNumber: "91823746501928", IFSC: "ICIC0000789"},
		{ID: "B004", Name: "John Mathew", Nickname: "john", AccountNumber: "11122233344455", IFSC: "UTIB0000321"},
	}))

	text := services.NewKeywordTextService()
	ledger := services.NewLedgerService(store)
	sessions := services.NewSessionManager(time.Minute)
	conversations := services.NewConversationService(services.ConversationDeps{
		Store:    store,
		Sessions: sessions,
		Text:     text,
		Flow: services.NewTransferFlow(services.TransferFlowDeps{
			Extractor: text,
			Resolver:  services.NewBeneficiaryResolver(store),
			OTP:       services.NewOTPService(store, time.Minute),
			Ledger:    ledger,
		}),
		Offers:  services.NewOffersHandler([]services.Offer{{Title: "5% cashback", Details: "On groceries"}}),
		Timeout: 5 * time.Second,
	})

	replies := &fakeReplies{}
	chat := NewChatHandler(conversations, ledger)
	admin := NewAdminHandler(sessions, store)

	app := fiber.New()
	app.Post("/api/chat", chat.HandleChat)
	app.Post("/api/chat/cancel", chat.Cancel)
	app.Get("/api/chat/:userId/state", chat.GetState)
	app.Get("/api/transfers/:userId", chat.GetTransfers)
	app.Get("/health", NewHealthHandler("test", "memory", text.Provider(), store, sessions).Check)
	app.Post("/webhook/whatsapp", NewWhatsAppHandler(conversations, replies).HandleWebhook)
	app.Get("/admin/sessions", admin.GetActiveSessions)
	app.Get("/admin/sessions/:userId", admin.GetSession)
	app.Get("/admin/beneficiaries", admin.GetBeneficiaries)

	return &testEnv{app: app, store: store, sessions: sessions, replies: replies}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func (e *testEnv) postJSON(t *testing.T, path, payload string) (int, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func TestHandleChat_Validation(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.postJSON(t, "/api/chat", `{"query": "hi"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "user_id is required", body["error"])

	code, body = env.postJSON(t, "/api/chat", `{"user_id": "u1", "query": "  "}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "query or otp is required", body["error"])

	code, _ = env.postJSON(t, "/api/chat", `{"user_id": `)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestHandleChat_TransferTurnWithNumericUserID(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.postJSON(t, "/api/chat", `{"user_id": 42, "query": "Transfer 500 to mom from savings"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, models.StatusConfirmationRequired, body["status"])
	assert.Equal(t, string(models.PhaseTransferSummary), body["phase"])
	response := body["response"].(map[string]interface{})
	assert.Contains(t, response["message"], "Lakshmi Rao")

	code, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/42/state", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, string(models.PhaseTransferSummary), body["phase"])
	assert.NotNil(t, body["pending_transfer"])

	code, body = env.postJSON(t, "/api/chat/cancel", `{"user_id": "42"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, string(models.PhaseNormal), body["phase"])

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/42/state", nil))
	assert.Equal(t, string(models.PhaseNormal), body["phase"])
	assert.Nil(t, body["pending_transfer"])
}

func TestHandleChat_OTPFieldCompletesTransfer(t *testing.T) {
	env := newTestEnv(t)

	env.postJSON(t, "/api/chat", `{"user_id": "u1", "query": "send 100 to john from current"}`)
	_, body := env.postJSON(t, "/api/chat", `{"user_id": "u1", "query": "yes"}`)
	require.Equal(t, models.StatusOTPRequired, body["status"])

	// wrong code through the otp field
	_, body = env.postJSON(t, "/api/chat", `{"user_id": "u1", "otp": "000000"}`)
	assert.Equal(t, models.StatusOTPIncorrect, body["status"])
	assert.Equal(t, string(models.PhaseOTP), body["phase"])

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/transfers/u1", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(0), body["count"])
}

func TestCancel_RequiresUserID(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.postJSON(t, "/api/chat/cancel", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	servicesBody := body["services"].(map[string]interface{})
	assert.Equal(t, true, servicesBody["storage"])
	assert.Equal(t, "memory", servicesBody["storage_type"])
}

func TestWhatsAppWebhook(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "show offers")
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	code, _ := env.do(t, req)
	require.Equal(t, fiber.StatusOK, code)
	require.Len(t, env.replies.sent["+919876543210"], 1)
	assert.Contains(t, env.replies.sent["+919876543210"][0], "5% cashback")

	// status callbacks are acknowledged without a turn
	form = url.Values{}
	form.Set("MessageSid", "SM123")
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	code, _ = env.do(t, req)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Len(t, env.replies.sent, 1)
}

func TestFormatReply(t *testing.T) {
	reply := formatReply(services.TurnResult{Response: models.Response{
		Message: "Multiple beneficiaries found for 'amy'. Please choose one.",
		Options: []string{"Amy Fernandes", "Amy Thomas"},
	}})
	assert.Equal(t, "Multiple beneficiaries found for 'amy'. Please choose one.\n• Amy Fernandes\n• Amy Thomas", reply)

	reply = formatReply(services.TurnResult{Response: models.Response{
		Message:        "Transfer of ₹500 to Lakshmi Rao successful!",
		Recommendation: "Make it monthly?",
	}})
	assert.Equal(t, "Transfer of ₹500 to Lakshmi Rao successful!\n\nMake it monthly? (yes/no)", reply)
}

func TestAdminViews(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON(t, "/api/chat", `{"user_id": "u1", "query": "show offers"}`)

	code, body := env.do(t, httptest.NewRequest(http.MethodGet, "/admin/sessions", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/sessions/u1", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(1), body["turns"])

	code, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/sessions/ghost", nil))
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/beneficiaries", nil))
	require.Equal(t, fiber.StatusOK, code)
	list := body["beneficiaries"].([]interface{})
	require.Len(t, list, 2)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "XXXXXXXXXX1928", first["account_number"])
}

func TestUserID_UnmarshalJSON(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"user_id": 1001}`), &req))
	assert.Equal(t, UserID("1001"), req.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"user_id": "abc"}`), &req))
	assert.Equal(t, UserID("abc"), req.UserID)

	assert.Error(t, json.Unmarshal([]byte(`{"user_id": true}`), &req))
}
