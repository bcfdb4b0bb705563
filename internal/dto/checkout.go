package dto

import (
	"time"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

// UpdateCheckoutRequest carries the context fields that trigger a re-resolve. Nil fields are unchanged.
type UpdateCheckoutRequest struct {
	SportID              *string  `json:"sportId,omitempty"`
	Country              *string  `json:"country,omitempty"`
	IncludeCertification *bool    `json:"includeCertification,omitempty"`
	StudentIDs           []string `json:"studentIds,omitempty" validate:"omitempty,min=1,dive,required"`
	SubstituteIDs        []string `json:"substituteIds,omitempty" validate:"omitempty,dive,required"`
}

// ConfirmCardRequest is what the card widget returns after the payer completes payment.
type ConfirmCardRequest struct {
	TransactionID     string `json:"transactionId" validate:"required"`
	ProviderPaymentID string `json:"providerPaymentId,omitempty"`
	Signature         string `json:"signature,omitempty"`
}

// ProofUpload is an uploaded proof-of-transfer file.
type ProofUpload struct {
	Filename string
	Size     int64
	Data     []byte
}

// BankTransferRequest is the multipart bank transfer submission.
type BankTransferRequest struct {
	ReferenceNumber string `form:"referenceNumber"`
	Proof           *ProofUpload
}

// CheckoutView is the client-facing session state.
type CheckoutView struct {
	*models.CheckoutSession
	SubmitEnabled bool   `json:"submitEnabled"`
	TotalAmount   string `json:"totalAmount,omitempty"`
}

// NewCheckoutView builds the view for session.
func NewCheckoutView(session *models.CheckoutSession, submitEnabled bool) *CheckoutView {
	view := &CheckoutView{CheckoutSession: session, SubmitEnabled: submitEnabled}
	if session.Pricing != nil {
		view.TotalAmount = FormatMinorUnits(session.Pricing.TotalAmountMinorUnits, session.Pricing.Currency)
	}
	return view
}

// BankTransferResponse reports a recorded bank transfer registration.
type BankTransferResponse struct {
	Success           bool              `json:"success"`
	StudentCount      int               `json:"studentCount"`
	PaymentScreenshot string            `json:"paymentScreenshot"`
	PaymentStatus     string            `json:"paymentStatus"`
	Errors            []models.RowError `json:"errors,omitempty"`
}

// NewBankTransferResponse summarises a bank transfer registration result.
func NewBankTransferResponse(result *models.RegistrationResult) BankTransferResponse {
	resp := BankTransferResponse{
		Success:      result.SuccessCount > 0,
		StudentCount: result.SuccessCount,
		Errors:       result.Errors,
	}
	if p := result.Payment; p != nil {
		resp.PaymentStatus = string(p.Status)
		if p.ProofRef != nil {
			resp.PaymentScreenshot = *p.ProofRef
		}
	}
	return resp
}

// DelegateLinkView is what a parent sees after opening an emailed payment link.
type DelegateLinkView struct {
	ParentEmail string        `json:"parentEmail"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Checkout    *CheckoutView `json:"checkout"`
}

// DelegateResponse reports how many parents were emailed.
type DelegateResponse struct {
	CheckoutID string `json:"checkoutId"`
	EmailsSent int    `json:"emailsSent"`
}
