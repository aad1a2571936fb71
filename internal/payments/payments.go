// Package payments sells AJT token packs through Stripe Checkout and credits
// wallets when Stripe reports a completed session.
//
// Crediting is driven entirely by the webhook: the browser redirect after
// checkout is cosmetic. Each Stripe session is credited at most once, no
// matter how many times Stripe delivers the event.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured means Stripe keys are absent from the environment.
	ErrNotConfigured = errors.New("stripe is not configured")
	// ErrBadPayload means the webhook event parsed but carried unusable
	// metadata (missing wallet, non-numeric amount).
	ErrBadPayload = errors.New("webhook payload is missing required metadata")
	// ErrBadSignature means the delivery failed signature verification.
	ErrBadSignature = errors.New("webhook signature verification failed")
)

// Store remembers which Stripe checkout sessions have been credited.
// MarkProcessed must be atomic: exactly one of N concurrent calls for the
// same session may observe first == true.
type Store interface {
	// MarkProcessed records the session as credited. first is true only
	// for the call that actually inserted the record.
	MarkProcessed(ctx context.Context, sessionID string) (first bool, err error)
	// Unmark forgets a session so a redelivered event can retry the credit.
	Unmark(ctx context.Context, sessionID string) error
	// PruneOlderThan drops records processed before cutoff and returns the
	// number removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
