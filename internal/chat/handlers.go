package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jiikooan/ajatus-server/internal/ledger"
	"github.com/Jiikooan/ajatus-server/internal/logging"
	"github.com/Jiikooan/ajatus-server/internal/validation"
)

const (
	defaultMaxTokens   = 2048
	maxAllowedTokens   = 8192
	defaultTemperature = 0.7
)

// Handler provides the HTTP endpoint for chat completions.
type Handler struct {
	gateway      *Gateway
	defaultModel string
}

// NewHandler creates a new chat handler.
func NewHandler(gateway *Gateway, defaultModel string) *Handler {
	return &Handler{gateway: gateway, defaultModel: defaultModel}
}

// RegisterRoutes sets up chat routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/api/chat", h.Chat)
}

// ChatRequest is the wire shape for POST /api/chat.
type ChatRequest struct {
	Messages      []Message `json:"messages" binding:"required,min=1,dive"`
	Model         string    `json:"model"`
	WalletAddress string    `json:"wallet_address"`
	Stream        *bool     `json:"stream"`
	MaxTokens     *int      `json:"max_tokens"`
	Temperature   *float64  `json:"temperature"`
}

// ChatResponse is the buffered (non-streaming) response shape.
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Chat handles POST /api/chat. The response is a server-sent event stream
// unless the request sets stream to false.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if req.Model == "" {
		req.Model = h.defaultModel
	}
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens < 1 || maxTokens > maxAllowedTokens {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "max_tokens must be between 1 and 8192",
		})
		return
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > 2 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "temperature must be between 0 and 2",
		})
		return
	}

	wallet := validation.SanitizeWallet(req.WalletAddress)
	provReq := Request{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	if req.Stream == nil || *req.Stream {
		h.stream(c, wallet, provReq)
	} else {
		h.complete(c, wallet, provReq)
	}
}

func (h *Handler) complete(c *gin.Context, wallet string, req Request) {
	completion, err := h.gateway.Complete(c.Request.Context(), wallet, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{
		Content: completion.Content,
		Model:   completion.Model,
		Usage:   completion.Usage,
	})
}

func (h *Handler) stream(c *gin.Context, wallet string, req Request) {
	fragments, err := h.gateway.Stream(c.Request.Context(), wallet, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)
	for frag := range fragments {
		var payload []byte
		if frag.Err != nil {
			// Headers are already out; errors ride in-band
			payload, _ = json.Marshal(gin.H{"error": frag.Err.Error()})
		} else {
			payload, _ = json.Marshal(gin.H{"content": frag.Content})
		}
		if _, err := c.Writer.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if frag.Err != nil {
			return
		}
	}

	c.Writer.Write([]byte("data: [DONE]\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "provider_unavailable",
			"message": "AI service is not configured",
		})
	case errors.Is(err, ErrWalletRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_wallet_address",
			"message": "wallet_address is required",
		})
	case errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   "insufficient_balance",
			"message": "Insufficient AJT balance. Please purchase more tokens.",
		})
	default:
		logging.L(c.Request.Context()).Error("chat request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "provider_error",
			"message": "Chat error: " + err.Error(),
		})
	}
}
