package payment

import "context"

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

// Event is a verified processor notification reduced to what the booking
// core reads.
type Event struct {
	ID                  string
	Type                string
	CorrelationID       string
	AmountMinor         int64
	Currency            string
	PaymentMethodType   string
	ApplicationFeeMinor int64
	Metadata            map[string]string
}

type IntentParams struct {
	AmountMinor        int64
	Currency           string
	PaymentMethodTypes []string
	// ApplicationFeeMinor and TransferDestination describe an inline fee
	// taken at capture. Both are empty for deferred-fee methods.
	ApplicationFeeMinor int64
	TransferDestination string
	// OnAccount creates the intent directly on a sub-account.
	OnAccount      string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	Status       string
	AmountMinor  int64
	Currency     string
	ClientSecret string
	Metadata     map[string]string
}

type Account struct {
	ID             string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// TransferParams moves funds from FromAccount (a sub-account) to
// Destination.
type TransferParams struct {
	AmountMinor    int64
	Currency       string
	FromAccount    string
	Destination    string
	SourceIntentID string
	IdempotencyKey string
	Metadata       map[string]string
}

type Transfer struct {
	ID          string
	AmountMinor int64
	Currency    string
}

// Gateway is the narrow payment-processor capability the core depends on.
type Gateway interface {
	VerifyEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
	CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error)
	RetrievePaymentIntent(ctx context.Context, id, onAccount string) (*Intent, error)
	RetrieveAccount(ctx context.Context, id string) (*Account, error)
	CreateTransfer(ctx context.Context, p TransferParams) (*Transfer, error)
}
