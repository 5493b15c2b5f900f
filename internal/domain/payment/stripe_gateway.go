package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
)

// StripeGateway implements Gateway on Stripe Connect. The client is injected
// per instance; no package-level key is set.
type StripeGateway struct {
	sc            *stripe.Client
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	g := &StripeGateway{webhookSecret: webhookSecret}
	if secretKey != "" {
		g.sc = stripe.NewClient(secretKey)
	}
	return g
}

func (g *StripeGateway) VerifyEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", ErrAuthentication)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrAuthentication)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type), Metadata: map[string]string{}}
	if evt.Data == nil {
		return out, nil
	}
	raw := evt.Data.Raw
	if gjson.GetBytes(raw, "object").String() != "payment_intent" {
		return out, nil
	}

	out.CorrelationID = gjson.GetBytes(raw, "id").String()
	out.Currency = gjson.GetBytes(raw, "currency").String()
	out.ApplicationFeeMinor = gjson.GetBytes(raw, "application_fee_amount").Int()
	out.AmountMinor = gjson.GetBytes(raw, "amount_received").Int()
	if out.AmountMinor == 0 {
		out.AmountMinor = gjson.GetBytes(raw, "amount").Int()
	}
	out.PaymentMethodType = gjson.GetBytes(raw, "payment_method_types.0").String()
	gjson.GetBytes(raw, "metadata").ForEach(func(k, v gjson.Result) bool {
		out.Metadata[k.String()] = v.String()
		return true
	})
	return out, nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if g.sc == nil {
		return nil, ErrGatewayUnavailable
	}
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		Metadata: p.Metadata,
	}
	for _, m := range p.PaymentMethodTypes {
		params.PaymentMethodTypes = append(params.PaymentMethodTypes, stripe.String(m))
	}
	if p.ApplicationFeeMinor > 0 {
		params.ApplicationFeeAmount = stripe.Int64(p.ApplicationFeeMinor)
	}
	if p.TransferDestination != "" {
		params.TransferData = &stripe.PaymentIntentCreateTransferDataParams{
			Destination: stripe.String(p.TransferDestination),
		}
	}
	if p.OnAccount != "" {
		params.SetStripeAccount(p.OnAccount)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, id, onAccount string) (*Intent, error) {
	if g.sc == nil {
		return nil, ErrGatewayUnavailable
	}
	params := &stripe.PaymentIntentRetrieveParams{}
	if onAccount != "" {
		params.SetStripeAccount(onAccount)
	}
	pi, err := g.sc.V1PaymentIntents.Retrieve(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", id, err)
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) RetrieveAccount(ctx context.Context, id string) (*Account, error) {
	if g.sc == nil {
		return nil, ErrGatewayUnavailable
	}
	acc, err := g.sc.V1Accounts.GetByID(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve account %s: %w", id, err)
	}
	return &Account{ID: acc.ID, ChargesEnabled: acc.ChargesEnabled, PayoutsEnabled: acc.PayoutsEnabled}, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, p TransferParams) (*Transfer, error) {
	if g.sc == nil {
		return nil, ErrGatewayUnavailable
	}
	params := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(p.AmountMinor),
		Currency:    stripe.String(strings.ToLower(p.Currency)),
		Destination: stripe.String(p.Destination),
		Metadata:    p.Metadata,
	}
	if p.SourceIntentID != "" {
		params.TransferGroup = stripe.String(p.SourceIntentID)
	}
	if p.FromAccount != "" {
		params.SetStripeAccount(p.FromAccount)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	tr, err := g.sc.V1Transfers.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	return &Transfer{ID: tr.ID, AmountMinor: tr.Amount, Currency: string(tr.Currency)}, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
		Metadata:     pi.Metadata,
	}
}
