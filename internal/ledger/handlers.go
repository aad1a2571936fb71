package ledger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jiikooan/ajatus-server/internal/logging"
	"github.com/Jiikooan/ajatus-server/internal/validation"
)

// Handler provides HTTP endpoints for wallet balances.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a new balance handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes sets up balance routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/api/balance", h.GetBalance)
}

// BalanceResponse is the wire shape for GET /api/balance.
type BalanceResponse struct {
	WalletAddress string `json:"wallet_address"`
	Balance       int64  `json:"balance"`
	Consumed      int64  `json:"consumed"`
	LastUpdated   string `json:"last_updated"`
}

// GetBalance handles GET /api/balance?wallet_address=...
// Reading a balance creates the account with the starting grant if the
// wallet has never been seen.
func (h *Handler) GetBalance(c *gin.Context) {
	wallet := validation.SanitizeWallet(c.Query("wallet_address"))
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_wallet_address",
			"message": "wallet_address is required",
		})
		return
	}

	acct, err := h.ledger.GetOrCreate(c.Request.Context(), wallet)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to load balance", "error", err, "wallet", wallet)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "balance_error",
			"message": "Failed to retrieve balance",
		})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		WalletAddress: acct.WalletAddress,
		Balance:       acct.Balance,
		Consumed:      acct.Consumed,
		LastUpdated:   acct.LastUpdated.Format(time.RFC3339),
	})
}
