package models

import (
	"fmt"
	"time"
)

// RegistrationSubmission is a validated request to register students for a sport.
type RegistrationSubmission struct {
	StudentIDs     []string `json:"studentIds"`
	SubstituteIDs  []string `json:"substituteIds,omitempty"`
	SportID        string   `json:"sportId"`
	EventID        string   `json:"eventId,omitempty"`
	AgeCategoryID  string   `json:"ageCategoryId"`
	DistanceID     string   `json:"distanceId,omitempty"`
	SportSubTypeID string   `json:"sportSubTypeId,omitempty"`
	AcademyCode    string   `json:"academyCode,omitempty"`
}

// Registration is one student's entry for a sport and event.
type Registration struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"studentId"`
	SportID        string    `db:"sport_id" json:"sportId"`
	EventID        *string   `db:"event_id" json:"eventId,omitempty"`
	AgeCategoryID  string    `db:"age_category_id" json:"ageCategoryId"`
	DistanceID     *string   `db:"distance_id" json:"distanceId,omitempty"`
	SportSubTypeID *string   `db:"sport_sub_type_id" json:"sportSubTypeId,omitempty"`
	AcademyCode    *string   `db:"academy_code" json:"academyCode,omitempty"`
	Substitute     bool      `db:"substitute" json:"substitute"`
	PaymentID      *string   `db:"payment_id" json:"paymentId,omitempty"`
	RegisteredBy   string    `db:"registered_by" json:"registeredBy"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// RegistrationStatus summarises a batch outcome.
type RegistrationStatus string

const (
	RegistrationSucceeded RegistrationStatus = "SUCCESS"
	RegistrationPartial   RegistrationStatus = "PARTIAL"
)

// RowError reports a single failed entry in a batch.
type RowError struct {
	Row       int    `json:"row"`
	StudentID string `json:"studentId"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// RegistrationResult reports which students were registered and which failed.
type RegistrationResult struct {
	Status        RegistrationStatus `json:"status"`
	SuccessCount  int                `json:"successCount"`
	Registrations []Registration     `json:"registrations"`
	Errors        []RowError         `json:"errors"`
	Payment       *Payment           `json:"paymentDetails,omitempty"`
}

// PaymentOutcomeKind tags the PaymentOutcome variant.
type PaymentOutcomeKind string

const (
	OutcomeNotRequired  PaymentOutcomeKind = "NOT_REQUIRED"
	OutcomeCard         PaymentOutcomeKind = "CARD"
	OutcomeBankTransfer PaymentOutcomeKind = "BANK_TRANSFER"
	OutcomeWaived       PaymentOutcomeKind = "WAIVED"
)

// CardPayment is a provider-confirmed card settlement.
type CardPayment struct {
	Provider      string
	TransactionID string
	PaymentID     string
	AmountMinor   int64
	Currency      string
}

// BankTransferPayment is a manual transfer awaiting staff verification.
type BankTransferPayment struct {
	ReferenceNumber string
	ProofRef        string
	ProofURL        string
}

// PaymentOutcome is how a registration was (or need not be) paid.
type PaymentOutcome struct {
	Kind         PaymentOutcomeKind
	CheckoutID   string
	Card         *CardPayment
	BankTransfer *BankTransferPayment
}

// Validate checks the variant carries its payload.
func (o PaymentOutcome) Validate() error {
	switch o.Kind {
	case OutcomeNotRequired, OutcomeWaived:
		return nil
	case OutcomeCard:
		if o.Card == nil || o.Card.TransactionID == "" {
			return fmt.Errorf("card outcome requires a transaction id")
		}
		return nil
	case OutcomeBankTransfer:
		if o.BankTransfer == nil || o.BankTransfer.ReferenceNumber == "" || o.BankTransfer.ProofRef == "" {
			return fmt.Errorf("bank transfer outcome requires reference and proof")
		}
		return nil
	default:
		return fmt.Errorf("unknown payment outcome %q", o.Kind)
	}
}

// Paid reports whether the outcome settles a non-zero charge.
func (o PaymentOutcome) Paid() bool {
	return o.Kind == OutcomeCard || o.Kind == OutcomeBankTransfer
}

// BulkImportResult reports a CSV import.
type BulkImportResult struct {
	SuccessCount int        `json:"successCount"`
	Errors       []RowError `json:"errors"`
}
