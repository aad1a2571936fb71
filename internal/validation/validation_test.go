package validation

import (
	"strings"
	"testing"
)

func TestIsBase58Wallet(t *testing.T) {
	tests := []struct {
		wallet string
		want   bool
	}{
		{"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", true},
		{"4Nd1mYvH6QyVXuZMAHc8BZGpRtk3dp1q9osvVMnvSxtX", true},
		{"", false},
		{"short", false},
		{"0x1234567890123456789012345678901234567890", false}, // hex, has 0
		{"IIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIII", false},        // I is not base58
		{strings.Repeat("A", 45), false},                       // too long
	}

	for _, tt := range tests {
		if got := IsBase58Wallet(tt.wallet); got != tt.want {
			t.Errorf("IsBase58Wallet(%q) = %v, want %v", tt.wallet, got, tt.want)
		}
	}
}

func TestSanitizeWallet(t *testing.T) {
	if got := SanitizeWallet("  wallet\x00addr  "); got != "walletaddr" {
		t.Errorf("SanitizeWallet = %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := SanitizeWallet(long); len(got) != MaxWalletLength {
		t.Errorf("Expected length %d, got %d", MaxWalletLength, len(got))
	}
}
