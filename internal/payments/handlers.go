package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jiikooan/ajatus-server/internal/logging"
	"github.com/Jiikooan/ajatus-server/internal/validation"
)

// Handler provides the Stripe checkout and webhook endpoints.
type Handler struct {
	checkout   *Checkout
	reconciler *Reconciler
	configured bool
}

// NewHandler creates a payments handler. configured should be false when
// Stripe keys are absent; both endpoints then answer 503.
func NewHandler(checkout *Checkout, reconciler *Reconciler, configured bool) *Handler {
	return &Handler{checkout: checkout, reconciler: reconciler, configured: configured}
}

// RegisterRoutes sets up payment routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/api/create-checkout-session", h.CreateCheckoutSession)
	r.POST("/api/stripe-webhook", h.StripeWebhook)
}

// CheckoutRequest is the wire shape for POST /api/create-checkout-session.
type CheckoutRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,min=1000"`
	Currency      string `json:"currency"`
	SuccessURL    string `json:"success_url" binding:"required,url"`
	CancelURL     string `json:"cancel_url" binding:"required,url"`
}

// CreateCheckoutSession handles POST /api/create-checkout-session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	if !h.configured {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "stripe_unconfigured",
			"message": "Payment processing is not configured",
		})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	wallet := validation.SanitizeWallet(req.WalletAddress)
	if !validation.IsBase58Wallet(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_wallet_address",
			"message": "wallet_address must be a base58-encoded public key",
		})
		return
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	sess, err := h.checkout.CreateSession(c.Request.Context(), SessionRequest{
		Wallet:     wallet,
		Amount:     req.Amount,
		Currency:   req.Currency,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to create checkout session", "error", err, "wallet", wallet)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "checkout_error",
			"message": "Failed to create checkout session: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sess.ID,
		"url":       sess.URL,
	})
}

// StripeWebhook handles POST /api/stripe-webhook. Stripe retries deliveries
// that do not get a 2xx, so transient failures answer 500 on purpose.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if !h.configured {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "stripe_unconfigured",
			"message": "Payment processing is not configured",
		})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Failed to read request body",
		})
		return
	}

	result, err := h.reconciler.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "stripe_unconfigured",
			"message": "Payment processing is not configured",
		})
	case errors.Is(err, ErrBadPayload):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_payload",
			"message": "Webhook payload is missing required metadata",
		})
	case errors.Is(err, ErrBadSignature):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "Webhook signature verification failed",
		})
	case err != nil:
		logging.L(c.Request.Context()).Error("webhook processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "webhook_error",
			"message": "Failed to process webhook event",
		})
	case result.Status == "ignored":
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "type": result.EventType})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "credited": result.Credited})
	}
}
