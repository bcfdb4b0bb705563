package models

import "time"

// PaymentStatus is the settlement state recorded for a registration payment.
type PaymentStatus string

const (
	PaymentStatusNotRequired         PaymentStatus = "NOT_REQUIRED"
	PaymentStatusSucceeded           PaymentStatus = "SUCCEEDED"
	PaymentStatusPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentStatusWaived              PaymentStatus = "WAIVED"
)

// Payment is persisted once per checkout settlement.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	CheckoutID      string        `db:"checkout_id" json:"checkoutId"`
	Provider        string        `db:"provider" json:"provider"`
	Method          string        `db:"method" json:"method"`
	TransactionID   *string       `db:"transaction_id" json:"transactionId,omitempty"`
	ReferenceNumber *string       `db:"reference_number" json:"referenceNumber,omitempty"`
	ProofRef        *string       `db:"proof_ref" json:"proofRef,omitempty"`
	AmountMinor     int64         `db:"amount_minor" json:"amountMinor"`
	Currency        string        `db:"currency" json:"currency"`
	Status          PaymentStatus `db:"status" json:"status"`
	PaidBy          string        `db:"paid_by" json:"paidBy"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
}

// PaymentIntentRef is the provider-issued reference held while a payment is pending.
type PaymentIntentRef struct {
	ClientSecretOrOrderID string `json:"clientSecretOrOrderId"`
	TransactionID         string `json:"transactionId"`
	Provider              string `json:"provider"`
	AmountMinorUnits      int64  `json:"amountMinorUnits"`
	Currency              string `json:"currency"`
	Status                string `json:"status"`
}

// Matches reports whether the reference can be reused for the given charge.
func (r *PaymentIntentRef) Matches(provider string, amount int64, currency string) bool {
	return r != nil && r.Provider == provider && r.AmountMinorUnits == amount && r.Currency == currency
}
