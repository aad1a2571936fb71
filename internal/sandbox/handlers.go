// Package sandbox is the placeholder for server-side code execution. The
// endpoint validates and acknowledges requests but runs nothing yet.
package sandbox

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultLanguage = "python"
	defaultTimeout  = 30
	maxTimeout      = 300
)

// Handler provides the code execution endpoint.
type Handler struct{}

// NewHandler creates a new sandbox handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes sets up sandbox routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/api/execute-code", h.ExecuteCode)
}

// ExecuteRequest is the wire shape for POST /api/execute-code.
type ExecuteRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language"`
	Timeout  *int   `json:"timeout"`
}

// ExecuteCode handles POST /api/execute-code.
func (h *Handler) ExecuteCode(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}
	timeout := defaultTimeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}
	if timeout < 1 || timeout > maxTimeout {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "timeout must be between 1 and 300 seconds",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "not_implemented",
		"message":     "Code execution is not available yet",
		"language":    req.Language,
		"code_length": len(req.Code),
	})
}
