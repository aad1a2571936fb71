// Package validation provides input validation helpers for the Ajatus API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxWalletLength bounds the opaque wallet identifier. Solana-style base58
// public keys are 32-44 chars; the ledger treats the value as opaque but
// refuses unbounded input.
const MaxWalletLength = 128

var walletRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsBase58Wallet reports whether s looks like a base58-encoded public key.
// The ledger accepts any non-empty opaque identifier; this stricter check is
// applied where tokens are purchased for a wallet, to catch typos before
// money moves.
func IsBase58Wallet(s string) bool {
	return walletRegex.MatchString(s)
}

// SanitizeWallet normalizes a wallet identifier: trims whitespace, strips
// null bytes, and bounds the length.
func SanitizeWallet(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) > MaxWalletLength {
		s = s[:MaxWalletLength]
	}
	return s
}
