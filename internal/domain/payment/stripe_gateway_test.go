package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

const succeededPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {
    "object": {
      "id": "pi_123",
      "object": "payment_intent",
      "amount": 25000,
      "amount_received": 25000,
      "currency": "eur",
      "application_fee_amount": 1650,
      "payment_method_types": ["card"],
      "metadata": {
        "booking_kind": "night_stay",
        "tenant_id": "1",
        "resource_id": "7",
        "check_in": "2025-07-10",
        "check_out": "2025-07-15"
      }
    }
  }
}`

func signed(t *testing.T, payload, secret string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return sp.Header
}

func TestStripeGateway_VerifyEvent(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)

	evt, err := g.VerifyEvent(context.Background(), []byte(succeededPayload), signed(t, succeededPayload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, EventIntentSucceeded, evt.Type)
	assert.Equal(t, "pi_123", evt.CorrelationID)
	assert.Equal(t, int64(25000), evt.AmountMinor)
	assert.Equal(t, int64(1650), evt.ApplicationFeeMinor)
	assert.Equal(t, "card", evt.PaymentMethodType)
	assert.Equal(t, "night_stay", evt.Metadata[MetaKind])
	assert.Equal(t, "2025-07-15", evt.Metadata[MetaCheckOut])
}

func TestStripeGateway_VerifyEventRejects(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)
	ctx := context.Background()

	_, err := g.VerifyEvent(ctx, []byte(succeededPayload), signed(t, succeededPayload, "whsec_other"))
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = g.VerifyEvent(ctx, []byte(succeededPayload), "")
	assert.ErrorIs(t, err, ErrAuthentication)

	tampered := succeededPayload[:len(succeededPayload)-2] + " }"
	_, err = g.VerifyEvent(ctx, []byte(tampered), signed(t, succeededPayload, testWebhookSecret))
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = NewStripeGateway("", "").VerifyEvent(ctx, []byte(succeededPayload), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestStripeGateway_NoClient(t *testing.T) {
	g := NewStripeGateway("", testWebhookSecret)
	_, err := g.RetrieveAccount(context.Background(), "acct_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
