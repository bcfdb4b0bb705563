package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/noah-isme/sports-academy-api/pkg/payments"
)

// Name identifies this provider in configuration.
const Name = "razorpay"

const orderPaid = "paid"

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Provider creates Razorpay orders and verifies checkout signatures.
type Provider struct {
	orders    orderAPI
	keySecret string
}

// New builds a provider from API credentials.
func New(keyID, keySecret string) (*Provider, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials missing")
	}
	client := rzp.NewClient(keyID, keySecret)
	return &Provider{orders: client.Order, keySecret: keySecret}, nil
}

func newWithAPI(api orderAPI, secret string) *Provider {
	return &Provider{orders: api, keySecret: secret}
}

// Name implements payments.Provider.
func (p *Provider) Name() string { return Name }

// CreateTransaction opens an auto-capturing order. The checkout id doubles as receipt.
func (p *Provider) CreateTransaction(ctx context.Context, req payments.CreateRequest) (*payments.Transaction, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("razorpay: amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, payments.Classify(Name, err, "")
	}
	notes := map[string]interface{}{}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	if req.IdempotencyKey != "" {
		notes["idempotency_key"] = req.IdempotencyKey
	}
	data := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        strings.ToUpper(req.Currency),
		"receipt":         truncate(req.CheckoutID, 40),
		"payment_capture": 1,
		"notes":           notes,
	}
	body, err := p.orders.Create(data, nil)
	if err != nil {
		return nil, payments.Classify(Name, err, "")
	}
	id := stringField(body, "id")
	return &payments.Transaction{
		Provider:      Name,
		Reference:     id,
		TransactionID: id,
		AmountMinor:   intField(body, "amount"),
		Currency:      strings.ToUpper(stringField(body, "currency")),
		Status:        payments.StatusCreated,
	}, nil
}

// ValidateReference accepts order ids of the form order_<id>.
func (p *Provider) ValidateReference(reference string) bool {
	return strings.HasPrefix(reference, "order_") && len(reference) > len("order_")
}

// Confirm verifies the checkout signature over "order_id|payment_id" and then checks the order is paid.
func (p *Provider) Confirm(ctx context.Context, req payments.ConfirmRequest) (*payments.Confirmation, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("razorpay: order id required")
	}
	conf := &payments.Confirmation{Provider: Name, TransactionID: req.TransactionID, PaymentID: req.ProviderPaymentID}
	if req.ProviderPaymentID == "" || req.Signature == "" {
		conf.Message = "Payment details are incomplete."
		return conf, nil
	}
	if !p.verifySignature(req.TransactionID, req.ProviderPaymentID, req.Signature) {
		conf.Message = "Payment signature verification failed."
		return conf, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, payments.Classify(Name, err, "")
	}
	body, err := p.orders.Fetch(req.TransactionID, nil, nil)
	if err != nil {
		return nil, payments.Classify(Name, err, "")
	}
	conf.AmountMinor = intField(body, "amount")
	conf.Currency = strings.ToUpper(stringField(body, "currency"))
	if stringField(body, "status") == orderPaid {
		conf.Succeeded = true
	} else {
		conf.Message = "Payment has not been captured."
	}
	return conf, nil
}

func (p *Provider) verifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(p.keySecret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
