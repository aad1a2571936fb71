package chat

import (
	"context"
	"errors"

	"github.com/Jiikooan/ajatus-server/internal/ledger"
	"github.com/Jiikooan/ajatus-server/internal/logging"
	"github.com/Jiikooan/ajatus-server/internal/metrics"
	"github.com/Jiikooan/ajatus-server/internal/traces"
)

// Gateway charges a wallet before relaying a completion request to the
// provider. The charge happens first: a wallet that cannot cover the cost
// never reaches the provider.
//
// A debit is refunded when the provider fails before producing any content.
// Once the first fragment of a streamed response has been delivered the
// charge is final, even if the stream dies midway.
type Gateway struct {
	ledger        *ledger.Ledger
	provider      Provider
	cost          int64
	requireWallet bool
}

// NewGateway creates a chat gateway. provider may be nil, in which case all
// requests fail with ErrProviderUnavailable.
func NewGateway(l *ledger.Ledger, provider Provider, cost int64, requireWallet bool) *Gateway {
	return &Gateway{
		ledger:        l,
		provider:      provider,
		cost:          cost,
		requireWallet: requireWallet,
	}
}

// ProviderAvailable reports whether an upstream provider is configured.
func (g *Gateway) ProviderAvailable() bool {
	return g.provider != nil
}

// charge debits the wallet ahead of provider work. It returns a refund
// callback, which is a no-op when no wallet was charged.
func (g *Gateway) charge(ctx context.Context, wallet string) (func(), error) {
	if wallet == "" {
		if g.requireWallet {
			return nil, ErrWalletRequired
		}
		return func() {}, nil
	}

	if _, err := g.ledger.Debit(ctx, wallet, g.cost); err != nil {
		return nil, err
	}
	return func() {
		if _, err := g.ledger.Refund(context.WithoutCancel(ctx), wallet, g.cost); err != nil {
			logging.L(ctx).Error("failed to refund chat charge", "error", err, "wallet", wallet)
		}
	}, nil
}

// Complete charges the wallet and performs a buffered completion. The charge
// is refunded if the provider fails.
func (g *Gateway) Complete(ctx context.Context, wallet string, req Request) (*Completion, error) {
	ctx, span := traces.StartSpan(ctx, "chat.complete", traces.Wallet(wallet), traces.Model(req.Model))
	defer span.End()

	if g.provider == nil {
		metrics.ChatRequestsTotal.WithLabelValues("complete", "unavailable").Inc()
		return nil, ErrProviderUnavailable
	}

	refund, err := g.charge(ctx, wallet)
	if err != nil {
		g.recordChargeFailure("complete", err)
		return nil, err
	}

	completion, err := g.provider.Complete(ctx, req)
	if err != nil {
		refund()
		metrics.ChatRequestsTotal.WithLabelValues("complete", "provider_error").Inc()
		return nil, err
	}

	metrics.ChatRequestsTotal.WithLabelValues("complete", "ok").Inc()
	return completion, nil
}

// Stream charges the wallet and starts a streaming completion. A provider
// failure before the first content fragment refunds the charge; after that
// the charge stands.
func (g *Gateway) Stream(ctx context.Context, wallet string, req Request) (<-chan Fragment, error) {
	ctx, span := traces.StartSpan(ctx, "chat.stream", traces.Wallet(wallet), traces.Model(req.Model))

	if g.provider == nil {
		span.End()
		metrics.ChatRequestsTotal.WithLabelValues("stream", "unavailable").Inc()
		return nil, ErrProviderUnavailable
	}

	refund, err := g.charge(ctx, wallet)
	if err != nil {
		span.End()
		g.recordChargeFailure("stream", err)
		return nil, err
	}

	upstream, err := g.provider.Stream(ctx, req)
	if err != nil {
		span.End()
		refund()
		metrics.ChatRequestsTotal.WithLabelValues("stream", "provider_error").Inc()
		return nil, err
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer span.End()

		delivered := false
		outcome := "ok"
		for frag := range upstream {
			if frag.Err != nil {
				if !delivered {
					refund()
				}
				outcome = "provider_error"
			}
			select {
			case out <- frag:
				if frag.Err == nil {
					delivered = true
				}
			case <-ctx.Done():
				metrics.ChatRequestsTotal.WithLabelValues("stream", "cancelled").Inc()
				return
			}
			if frag.Err != nil {
				break
			}
		}
		metrics.ChatRequestsTotal.WithLabelValues("stream", outcome).Inc()
	}()

	return out, nil
}

func (g *Gateway) recordChargeFailure(mode string, err error) {
	if errors.Is(err, ledger.ErrInsufficientBalance) {
		metrics.ChatRequestsTotal.WithLabelValues(mode, "insufficient").Inc()
	} else {
		metrics.ChatRequestsTotal.WithLabelValues(mode, "rejected").Inc()
	}
}
