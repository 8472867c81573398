package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/auth"
	"github.com/planmoni/planmoni-backend/internal/config"
	"github.com/planmoni/planmoni-backend/internal/idempotency"
	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/notify"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	"github.com/planmoni/planmoni-backend/internal/repository/memory"
	"github.com/planmoni/planmoni-backend/internal/services"
)

const secret = "sk_test_webhook"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubProcessor struct{ charge paystack.ChargeData }

func (p *stubProcessor) Charge(context.Context, paystack.ChargeRequest) (paystack.ChargeData, error) {
	return p.charge, nil
}

func (p *stubProcessor) Submit(context.Context, paystack.SubmitKind, string, string) (paystack.ChargeData, error) {
	return p.charge, nil
}

func (p *stubProcessor) CreateCustomer(context.Context, paystack.CustomerRequest) (paystack.Customer, error) {
	return paystack.Customer{CustomerCode: "CUS_test"}, nil
}

func (p *stubProcessor) CreateDedicatedAccount(context.Context, string, string) (paystack.DedicatedAccount, error) {
	return paystack.DedicatedAccount{}, nil
}

type fixture struct {
	srv   *httptest.Server
	store *memory.Store
	tm    *auth.TokenManager
	proc  *stubProcessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	cfg := config.Config{Env: "dev", PaystackSecretKey: secret, RateRPS: 1000, UserRatePerMinute: 1000}
	store := memory.NewStore()
	proc := &stubProcessor{}
	tm := auth.NewTokenManager("jwt-secret", "", "authenticated", time.Hour)
	n := notify.Nop{}

	h := NewRouter(RouterDeps{
		Cfg:         cfg,
		Log:         log,
		TM:          tm,
		Webhooks:    services.NewWebhookService(store, idempotency.NewLocalGuard(), n, log),
		Withdrawals: services.NewWithdrawalService(store, n, log, false),
		Cards:       services.NewCardService(store, proc, n, log, 5000),
		Wallets:     services.NewWalletService(store),
		Plans:       services.NewPlanService(store, n, log),
		Deposits:    services.NewDepositService(store, proc, log),
		Accounts:    services.NewAccountService(store, proc, log),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, tm: tm, proc: proc}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (f *fixture) webhook(t *testing.T, body []byte, sig string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/webhooks/paystack", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(paystack.SignatureHeader, sig)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestWebhookEndpoint(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Repos().VirtualAccounts.Upsert(context.Background(), models.VirtualAccount{
		UserID: "user-1", CustomerCode: "CUS_1", AccountNumber: "9930000001", Status: models.AccountAssigned,
	})
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success","data":{"reference":"T-1","status":"success","amount":250000,"currency":"NGN",` +
		`"authorization":{"receiver_bank_account_number":"9930000001"},"metadata":""}}`)

	tests := []struct {
		name   string
		body   []byte
		sig    string
		status int
		want   string
	}{
		{"missing signature", body, "", http.StatusUnauthorized, ""},
		{"wrong signature", body, paystack.Sign(body, "other"), http.StatusUnauthorized, ""},
		{"malformed payload", []byte(`{"event":`), paystack.Sign([]byte(`{"event":`), secret), http.StatusBadRequest, ""},
		{"first delivery", body, paystack.Sign(body, secret), http.StatusOK, "processed"},
		{"replay", body, paystack.Sign(body, secret), http.StatusOK, "already_processed"},
		{"unhandled event", []byte(`{"event":"invoice.create","data":{}}`), paystack.Sign([]byte(`{"event":"invoice.create","data":{}}`), secret), http.StatusOK, "ignored"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := f.webhook(t, tc.body, tc.sig)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.want != "" {
				assert.Equal(t, tc.want, out["status"])
			}
		})
	}

	w, err := f.store.Repos().Wallets.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "2500", w.Balance.String())
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	resp, out := f.do(t, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", out["code"])

	resp, _ = f.do(t, http.MethodGet, "/api/v1/wallet", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, _, err := f.tm.Issue("user-9", "authenticated", "")
	require.NoError(t, err)
	resp, out = f.do(t, http.MethodGet, "/api/v1/wallet", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", out["available_balance"])

	anon, _, err := f.tm.Issue("user-9", "anon", "")
	require.NoError(t, err)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/wallet", anon, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDevToken(t *testing.T) {
	f := newFixture(t)
	resp, out := f.do(t, http.MethodPost, "/api/v1/auth/dev-token", "", map[string]string{"user_id": "user-5"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-5", out["user_id"])

	tok, _ := out["access_token"].(string)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/events", tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmergencyWithdrawalEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.store.Repos()
	_, err := r.Wallets.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	_, err = r.Wallets.Adjust(ctx, "user-1", dec("100000"), dec("80000"))
	require.NoError(t, err)
	plan, err := r.PayoutPlans.Create(ctx, models.PayoutPlan{
		UserID: "user-1", TotalAmount: dec("100000"), PayoutAmount: dec("20000"), CompletedPayouts: 1,
		Duration: 5, Frequency: "monthly", Status: models.PlanActive, EmergencyWithdrawalEnabled: true,
	})
	require.NoError(t, err)

	const path = "/api/v1/payout-plans/emergency-withdrawal"
	body := func(amount, fee, net float64, option string) map[string]any {
		return map[string]any{"planId": plan.ID, "option": option, "amount": amount, "feeAmount": fee, "netAmount": net}
	}

	resp, out := f.do(t, http.MethodPost, path, "dev-user-1", body(30000, 0, 30000, "someday"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", out["code"])

	resp, _ = f.do(t, http.MethodPost, path, "dev-user-1", body(80001, 0, 80001, "instant"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, path, "dev-user-2", body(30000, 0, 30000, "instant"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out = f.do(t, http.MethodPost, path, "dev-user-1", body(30000, 600, 29400, "24hours"))
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, true, out["success"])
	planOut, _ := out["plan"].(map[string]any)
	assert.Equal(t, "50000", planOut["total_amount"])
	assert.EqualValues(t, 2, planOut["duration"])
	walletOut, _ := out["wallet"].(map[string]any)
	assert.Equal(t, "49400", walletOut["available_balance"])
}

func TestCardTokenizeEndpoint(t *testing.T) {
	f := newFixture(t)
	f.proc.charge = paystack.ChargeData{Status: "send_otp", DisplayText: "Enter OTP"}

	card := map[string]string{
		"card_number": "4084084084084081", "cvv": "408", "expiry_month": "12", "expiry_year": "30", "email": "ada@example.com",
	}
	resp, out := f.do(t, http.MethodPost, "/api/v1/cards/tokenize", "dev-user-1", card)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "send_otp", out["status"])
	ref, _ := out["reference"].(string)

	f.proc.charge = paystack.ChargeData{Status: "success", Authorization: paystack.Authorization{
		AuthorizationCode: "AUTH_x", Signature: "SIG_x", Last4: "4081", Reusable: true,
	}}
	resp, out = f.do(t, http.MethodPut, "/api/v1/cards/tokenize", "dev-user-1", map[string]string{"reference": ref, "otp": "123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)
	c, _ := out["card"].(map[string]any)
	assert.Equal(t, "4081", c["last4"])
	assert.NotContains(t, c, "authorization_code")

	bad := map[string]string{"card_number": "abc", "email": "nope"}
	resp, out = f.do(t, http.MethodPost, "/api/v1/cards/tokenize", "dev-user-1", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["details"])
}

func TestPlanLifecycleEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Repos().Wallets.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	_, err = f.store.Repos().Wallets.Adjust(ctx, "user-1", dec("50000"), dec("0"))
	require.NoError(t, err)

	resp, out := f.do(t, http.MethodPost, "/api/v1/payout-plans", "dev-user-1", map[string]any{
		"name": "Rent", "total_amount": "40000", "payout_amount": "10000", "frequency": "monthly",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)
	id, _ := out["id"].(string)

	resp, out = f.do(t, http.MethodPost, "/api/v1/payout-plans/"+id+"/pause", "dev-user-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paused", out["status"])

	resp, _ = f.do(t, http.MethodPost, "/api/v1/payout-plans/"+id+"/pause", "dev-user-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/payout-plans/"+id, "dev-user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out = f.do(t, http.MethodGet, "/api/v1/wallet", "dev-user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "40000", out["locked_balance"])
}
