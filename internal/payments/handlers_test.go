package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/Jiikooan/ajatus-server/internal/ledger"
)

// 44-char base58 string, shaped like a Solana public key.
const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func setupPaymentsRouter(t *testing.T, creator SessionCreator, configured bool) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := ledger.New(ledger.NewMemoryStore(1000))
	checkout := NewCheckoutWithCreator(creator)
	reconciler := NewReconciler(l, NewMemoryStore(), testWebhookSecret)
	r := gin.New()
	NewHandler(checkout, reconciler, configured).RegisterRoutes(r)
	return r, l
}

func okCreator(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{
		ID:  "cs_test_abc",
		URL: "https://checkout.stripe.com/pay/cs_test_abc",
	}, nil
}

// checkoutBody builds a valid request body with the test wallet and URLs.
func checkoutBody(amount string) string {
	return `{"wallet_address":"` + testWallet + `","amount":` + amount +
		`,"success_url":"https://app.example.com/paid","cancel_url":"https://app.example.com/cancelled"}`
}

func TestCreateCheckoutSession(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/create-checkout-session", strings.NewReader(checkoutBody("50000")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cs_test_abc", resp["sessionId"])
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_abc", resp["url"])
}

func TestCreateCheckoutSession_UsesClientReturnURLs(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	r, _ := setupPaymentsRouter(t, func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_test_abc", URL: "https://checkout.stripe.com/pay/cs_test_abc"}, nil
	}, true)

	w := httptest.NewRecorder()
	body := `{"wallet_address":"` + testWallet + `","amount":50000,` +
		`"success_url":"https://client.example/ok","cancel_url":"https://client.example/no"}`
	req := httptest.NewRequest("POST", "/api/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "https://client.example/ok?session_id={CHECKOUT_SESSION_ID}", *captured.SuccessURL)
	assert.Equal(t, "https://client.example/no", *captured.CancelURL)
}

func TestCreateCheckoutSession_CreatorError(t *testing.T) {
	r, _ := setupPaymentsRouter(t, func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("rate limited by stripe")
	}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/create-checkout-session", strings.NewReader(checkoutBody("50000")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "checkout_error", resp["error"])
	assert.Contains(t, resp["message"], "rate limited by stripe")
}

func TestCreateCheckoutSession_Unconfigured(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/create-checkout-session", strings.NewReader(checkoutBody("50000")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateCheckoutSession_Validation(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, true)

	urls := `"success_url":"https://app.example.com/paid","cancel_url":"https://app.example.com/cancelled"`
	cases := []string{
		`{"amount":50000,` + urls + `}`,                              // missing wallet
		`{"wallet_address":"` + testWallet + `",` + urls + `}`,       // missing amount
		checkoutBody("500"),                                          // below minimum purchase
		`{"wallet_address":"not base58!","amount":50000,` + urls + `}`,
		`{"wallet_address":"short","amount":50000,` + urls + `}`,
		`{"wallet_address":"` + testWallet + `","amount":50000,"cancel_url":"https://a.example/no"}`,  // missing success_url
		`{"wallet_address":"` + testWallet + `","amount":50000,"success_url":"https://a.example/ok"}`, // missing cancel_url
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/create-checkout-session", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestStripeWebhook_CreditsWallet(t *testing.T) {
	r, l := setupPaymentsRouter(t, okCreator, true)

	payload, header := signedEvent(t, "checkout.session.completed", "cs_wh_1", map[string]string{
		"wallet_address": testWallet,
		"ajt_amount":     "50000",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/stripe-webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", header)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(50000), resp["credited"])

	acct, err := l.GetOrCreate(req.Context(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(51000), acct.Balance)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/stripe-webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_signature", resp["error"])
}

func TestStripeWebhook_IgnoredEvent(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, true)

	payload, header := signedEvent(t, "invoice.paid", "in_test_1", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/stripe-webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", header)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp["status"])
	assert.Equal(t, "invoice.paid", resp["type"])
}

func TestStripeWebhook_Unconfigured(t *testing.T) {
	r, _ := setupPaymentsRouter(t, okCreator, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/stripe-webhook", strings.NewReader("{}"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
