package payments

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Transaction statuses carried on a pending reference.
const (
	StatusCreated     = "created"
	StatusSucceeded   = "succeeded"
	StatusFailed      = "failed"
	StatusNotRequired = "not_required"
)

// ErrTransport marks failures to reach the provider at all.
var ErrTransport = errors.New("payment provider unreachable")

// CreateRequest describes a payment attempt to open with a provider.
type CreateRequest struct {
	CheckoutID     string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Transaction is a provider-issued reference for a not-yet-settled payment.
type Transaction struct {
	Provider string `json:"provider"`
	// Reference is what the client widget needs: a Stripe client secret or a Razorpay order id.
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
	AmountMinor   int64  `json:"amountMinor"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

// ConfirmRequest carries what the client received after paying.
type ConfirmRequest struct {
	TransactionID     string
	ProviderPaymentID string
	Signature         string
}

// Confirmation is the provider's verdict on a transaction.
type Confirmation struct {
	Provider      string
	TransactionID string
	PaymentID     string
	AmountMinor   int64
	Currency      string
	Succeeded     bool
	// Message is the provider's human readable reason when Succeeded is false.
	Message string
}

// Provider is implemented by each payment gateway integration.
type Provider interface {
	Name() string
	CreateTransaction(ctx context.Context, req CreateRequest) (*Transaction, error)
	// ValidateReference performs the provider-specific format check on a client reference.
	ValidateReference(reference string) bool
	Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
}

// ProviderError is an error reported by the provider API itself, with a displayable message.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classify wraps network failures with ErrTransport and leaves API errors as ProviderError.
func Classify(provider string, err error, message string) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTransport, err)
	}
	if message == "" {
		message = err.Error()
	}
	return &ProviderError{Provider: provider, Message: message, Err: err}
}
