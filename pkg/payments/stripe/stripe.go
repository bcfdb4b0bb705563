package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/noah-isme/sports-academy-api/pkg/payments"
)

// Name identifies this provider in configuration.
const Name = "stripe"

type intentAPI interface {
	New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
	Get(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
}

// Provider creates and verifies Stripe PaymentIntents.
type Provider struct {
	intents intentAPI
}

// New builds a provider using the secret key. Network retries are disabled.
func New(secretKey string, timeout time.Duration) (*Provider, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key missing")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripeapi.Int64(0),
	})
	sc := client.New(secretKey, &stripeapi.Backends{API: backend})
	return &Provider{intents: sc.PaymentIntents}, nil
}

func newWithAPI(api intentAPI) *Provider {
	return &Provider{intents: api}
}

// Name implements payments.Provider.
func (p *Provider) Name() string { return Name }

// CreateTransaction opens a PaymentIntent with automatic payment methods.
func (p *Provider) CreateTransaction(ctx context.Context, req payments.CreateRequest) (*payments.Transaction, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("stripe: amount must be positive")
	}
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(req.AmountMinor),
		Currency: stripeapi.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.CheckoutID != "" {
		params.AddMetadata("checkout_id", req.CheckoutID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.intents.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return &payments.Transaction{
		Provider:      Name,
		Reference:     pi.ClientSecret,
		TransactionID: pi.ID,
		AmountMinor:   pi.Amount,
		Currency:      strings.ToUpper(string(pi.Currency)),
		Status:        payments.StatusCreated,
	}, nil
}

// ValidateReference checks the client secret shape: pi_<id>_secret_<token>.
func (p *Provider) ValidateReference(reference string) bool {
	return strings.HasPrefix(reference, "pi_") && strings.Contains(reference, "_secret_")
}

// Confirm retrieves the PaymentIntent and reports whether it settled.
func (p *Provider) Confirm(ctx context.Context, req payments.ConfirmRequest) (*payments.Confirmation, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("stripe: transaction id required")
	}
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.intents.Get(req.TransactionID, params)
	if err != nil {
		return nil, classify(err)
	}

	conf := &payments.Confirmation{
		Provider:      Name,
		TransactionID: pi.ID,
		AmountMinor:   pi.Amount,
		Currency:      strings.ToUpper(string(pi.Currency)),
	}
	if pi.LatestCharge != nil {
		conf.PaymentID = pi.LatestCharge.ID
	}
	switch pi.Status {
	case stripeapi.PaymentIntentStatusSucceeded:
		conf.Succeeded = true
	case stripeapi.PaymentIntentStatusProcessing:
		conf.Message = "Your payment is still processing."
	default:
		conf.Message = "Your payment was not completed."
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			conf.Message = pi.LastPaymentError.Msg
		}
	}
	return conf, nil
}

func classify(err error) error {
	var se *stripeapi.Error
	if errors.As(err, &se) {
		return payments.Classify(Name, err, se.Msg)
	}
	return payments.Classify(Name, err, "")
}
