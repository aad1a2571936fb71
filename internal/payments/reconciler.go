package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/Jiikooan/ajatus-server/internal/ledger"
	"github.com/Jiikooan/ajatus-server/internal/logging"
	"github.com/Jiikooan/ajatus-server/internal/metrics"
	"github.com/Jiikooan/ajatus-server/internal/traces"
)

// Result summarizes how a webhook event was handled.
type Result struct {
	Status    string // "success" or "ignored"
	Credited  int64  // AJT credited by this delivery; 0 for duplicates
	EventType string
}

// Reconciler verifies Stripe webhook deliveries and credits wallets for
// completed checkout sessions, exactly once per session.
type Reconciler struct {
	ledger        *ledger.Ledger
	store         Store
	webhookSecret string
}

// NewReconciler creates a webhook reconciler.
func NewReconciler(l *ledger.Ledger, store Store, webhookSecret string) *Reconciler {
	return &Reconciler{ledger: l, store: store, webhookSecret: webhookSecret}
}

// HandleEvent verifies the delivery signature and applies the event.
//
// Signature and payload problems are permanent: the caller should answer 400
// so Stripe stops retrying. A credit failure is transient and surfaces as an
// error with the session unmarked, so Stripe's redelivery can retry it.
func (r *Reconciler) HandleEvent(ctx context.Context, payload []byte, sigHeader string) (*Result, error) {
	if r.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, r.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("bad_signature").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	ctx, span := traces.StartSpan(ctx, "payments.webhook", traces.EventType(string(event.Type)))
	defer span.End()

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return &Result{Status: "ignored", EventType: string(event.Type)}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("bad_payload").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	wallet := sess.Metadata["wallet_address"]
	amount, convErr := strconv.ParseInt(sess.Metadata["ajt_amount"], 10, 64)
	if wallet == "" || convErr != nil || amount <= 0 {
		metrics.WebhookEventsTotal.WithLabelValues("bad_payload").Inc()
		return nil, ErrBadPayload
	}

	first, err := r.store.MarkProcessed(ctx, sess.ID)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("record session: %w", err)
	}
	if !first {
		logging.L(ctx).Info("duplicate webhook delivery ignored", "session_id", sess.ID)
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return &Result{Status: "success", Credited: 0, EventType: string(event.Type)}, nil
	}

	if _, err := r.ledger.Credit(ctx, wallet, amount); err != nil {
		// Unmark so Stripe's redelivery can retry the credit
		if unmarkErr := r.store.Unmark(ctx, sess.ID); unmarkErr != nil {
			logging.L(ctx).Error("failed to unmark session after credit failure",
				"error", unmarkErr, "session_id", sess.ID)
		}
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	logging.L(ctx).Info("wallet credited from checkout",
		"wallet", wallet, "amount", amount, "session_id", sess.ID)
	metrics.WebhookEventsTotal.WithLabelValues("ok").Inc()
	return &Result{Status: "success", Credited: amount, EventType: string(event.Type)}, nil
}
