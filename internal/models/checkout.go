package models

import (
	"fmt"
	"time"
)

// CheckoutState is a node of the payment method selector.
type CheckoutState string

const (
	CheckoutResolving            CheckoutState = "RESOLVING"
	CheckoutFree                 CheckoutState = "FREE"
	CheckoutAwaitingMethodChoice CheckoutState = "AWAITING_METHOD_CHOICE"
	CheckoutCardFlow             CheckoutState = "CARD_FLOW"
	CheckoutBankTransferFlow     CheckoutState = "BANK_TRANSFER_FLOW"
	CheckoutDelegateFlow         CheckoutState = "DELEGATE_TO_PARENT_FLOW"
	CheckoutCompleted            CheckoutState = "COMPLETED"
	CheckoutFailed               CheckoutState = "FAILED"
	CheckoutCancelled            CheckoutState = "CANCELLED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	"":                           {CheckoutResolving},
	CheckoutResolving:            {CheckoutResolving, CheckoutFree, CheckoutAwaitingMethodChoice, CheckoutCancelled},
	CheckoutFree:                 {CheckoutResolving, CheckoutCompleted, CheckoutCancelled},
	CheckoutAwaitingMethodChoice: {CheckoutResolving, CheckoutCardFlow, CheckoutBankTransferFlow, CheckoutDelegateFlow, CheckoutCancelled},
	CheckoutCardFlow:             {CheckoutResolving, CheckoutCardFlow, CheckoutBankTransferFlow, CheckoutDelegateFlow, CheckoutCompleted, CheckoutFailed, CheckoutCancelled},
	CheckoutBankTransferFlow:     {CheckoutResolving, CheckoutCardFlow, CheckoutBankTransferFlow, CheckoutDelegateFlow, CheckoutCompleted, CheckoutCancelled},
	CheckoutDelegateFlow:         {CheckoutResolving, CheckoutCardFlow, CheckoutBankTransferFlow, CheckoutDelegateFlow, CheckoutCompleted, CheckoutCancelled},
	CheckoutFailed:               {CheckoutResolving, CheckoutCardFlow, CheckoutBankTransferFlow, CheckoutDelegateFlow, CheckoutCompleted, CheckoutFailed, CheckoutCancelled},
}

// CanTransition reports whether the selector may move from s to next.
func (s CheckoutState) CanTransition(next CheckoutState) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s CheckoutState) Terminal() bool {
	return s == CheckoutCompleted || s == CheckoutCancelled
}

// PaymentMethodKind tags the PaymentMethod variant.
type PaymentMethodKind string

const (
	MethodUnifiedWidget    PaymentMethodKind = "UNIFIED_WIDGET"
	MethodCardOnlyWidget   PaymentMethodKind = "CARD_ONLY_WIDGET"
	MethodBankTransfer     PaymentMethodKind = "BANK_TRANSFER"
	MethodDelegateToParent PaymentMethodKind = "DELEGATE_TO_PARENT"
)

// PaymentMethod is the payer's chosen path. Exactly one card widget is active in CARD_FLOW.
type PaymentMethod struct {
	Kind PaymentMethodKind `json:"kind" validate:"required"`
}

// Flow maps the method onto the state it enters.
func (m PaymentMethod) Flow() (CheckoutState, error) {
	switch m.Kind {
	case MethodUnifiedWidget, MethodCardOnlyWidget:
		return CheckoutCardFlow, nil
	case MethodBankTransfer:
		return CheckoutBankTransferFlow, nil
	case MethodDelegateToParent:
		return CheckoutDelegateFlow, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", m.Kind)
	}
}

// IsCard reports whether the method settles through a card widget.
func (m PaymentMethod) IsCard() bool {
	return m.Kind == MethodUnifiedWidget || m.Kind == MethodCardOnlyWidget
}

// RegistrationContext captures what is being registered in a checkout.
type RegistrationContext struct {
	SportID              string   `json:"sportId" validate:"required"`
	EventID              string   `json:"eventId,omitempty"`
	AgeCategoryID        string   `json:"ageCategoryId" validate:"required"`
	DistanceID           string   `json:"distanceId,omitempty"`
	SportSubTypeID       string   `json:"sportSubTypeId,omitempty"`
	AcademyCode          string   `json:"academyCode,omitempty"`
	Country              string   `json:"country,omitempty"`
	IncludeCertification bool     `json:"includeCertification"`
	StudentIDs           []string `json:"studentIds" validate:"required,min=1,dive,required"`
	SubstituteIDs        []string `json:"substituteIds,omitempty" validate:"omitempty,dive,required"`
}

// Submission converts the context into a registration submission.
func (c RegistrationContext) Submission() RegistrationSubmission {
	return RegistrationSubmission{
		StudentIDs:     append([]string{}, c.StudentIDs...),
		SubstituteIDs:  append([]string{}, c.SubstituteIDs...),
		SportID:        c.SportID,
		EventID:        c.EventID,
		AgeCategoryID:  c.AgeCategoryID,
		DistanceID:     c.DistanceID,
		SportSubTypeID: c.SportSubTypeID,
		AcademyCode:    c.AcademyCode,
	}
}

// CheckoutSession is the server-side owner of transient payment state, stored in Redis.
type CheckoutSession struct {
	ID         string              `json:"id"`
	OwnerID    string              `json:"ownerId"`
	OwnerRole  UserRole            `json:"ownerRole"`
	OwnerName  string              `json:"ownerName,omitempty"`
	State      CheckoutState       `json:"state"`
	Generation int64               `json:"generation"`
	Processing bool                `json:"processing"`
	Context    RegistrationContext `json:"context"`
	Pricing    *PricingCalculation `json:"pricing,omitempty"`
	Pending    *PaymentIntentRef   `json:"pending,omitempty"`
	Method     *PaymentMethod      `json:"method,omitempty"`
	SetupError string              `json:"setupError,omitempty"`
	LastError  string              `json:"lastError,omitempty"`
	Result     *RegistrationResult `json:"result,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// TransitionTo moves the session to next when the table allows it.
func (s *CheckoutSession) TransitionTo(next CheckoutState) error {
	if !s.State.CanTransition(next) {
		return fmt.Errorf("checkout %s cannot move from %s to %s", s.ID, s.State, next)
	}
	s.State = next
	return nil
}

// OwnedBy reports whether actor may act on the session.
func (s *CheckoutSession) OwnedBy(actor Actor) bool {
	return s.OwnerID == actor.ID || actor.Role == RoleAdmin
}
