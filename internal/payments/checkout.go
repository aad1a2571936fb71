package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/Jiikooan/ajatus-server/internal/metrics"
	"github.com/Jiikooan/ajatus-server/internal/traces"
)

// AJT tokens are priced at 1000 AJT per major currency unit.
const tokensPerMajorUnit = 1000

// SessionCreator creates a Stripe checkout session. In production this is
// session.New; tests substitute a fake.
type SessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Checkout builds Stripe Checkout sessions for AJT token purchases.
type Checkout struct {
	create SessionCreator
}

// NewCheckout creates a checkout service backed by the live Stripe API.
// The package-level stripe.Key must be set before sessions are created.
func NewCheckout() *Checkout {
	return &Checkout{create: session.New}
}

// NewCheckoutWithCreator creates a checkout service with a custom session
// creator.
func NewCheckoutWithCreator(create SessionCreator) *Checkout {
	return &Checkout{create: create}
}

// PriceMinorUnits converts an AJT amount to a price in minor currency units
// (cents): 1000 AJT costs one major unit.
func PriceMinorUnits(ajtAmount int64) int64 {
	return ajtAmount * 100 / tokensPerMajorUnit
}

// SessionRequest is the input to checkout session creation. SuccessURL and
// CancelURL come from the client; the buyer's browser is sent back to them
// after payment.
type SessionRequest struct {
	Wallet     string
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CreateSession opens a Stripe Checkout session selling req.Amount AJT to
// req.Wallet. Stripe substitutes the session ID into the success URL.
func (c *Checkout) CreateSession(ctx context.Context, req SessionRequest) (*stripe.CheckoutSession, error) {
	ctx, span := traces.StartSpan(ctx, "payments.create_session", traces.Wallet(req.Wallet), traces.Tokens(req.Amount))
	defer span.End()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("%s AJT Tokens", groupDigits(req.Amount))),
						Description: stripe.String("AJT tokens for AI chat on Ajatuskumppani"),
					},
					UnitAmount: stripe.Int64(PriceMinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("wallet_address", req.Wallet)
	params.AddMetadata("ajt_amount", strconv.FormatInt(req.Amount, 10))

	sess, err := c.create(params)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	metrics.CheckoutSessionsTotal.WithLabelValues("ok").Inc()
	return sess, nil
}

// groupDigits renders n with thousands separators ("50,000").
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
