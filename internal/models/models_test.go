package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTransitions(t *testing.T) {
	assert.True(t, CheckoutState("").CanTransition(CheckoutResolving))
	assert.True(t, CheckoutResolving.CanTransition(CheckoutFree))
	assert.True(t, CheckoutResolving.CanTransition(CheckoutAwaitingMethodChoice))
	assert.True(t, CheckoutFailed.CanTransition(CheckoutCardFlow))
	assert.True(t, CheckoutCardFlow.CanTransition(CheckoutFailed))

	assert.False(t, CheckoutFree.CanTransition(CheckoutCardFlow))
	assert.False(t, CheckoutAwaitingMethodChoice.CanTransition(CheckoutCompleted))
	assert.False(t, CheckoutBankTransferFlow.CanTransition(CheckoutFailed))
	for _, next := range []CheckoutState{CheckoutResolving, CheckoutCardFlow, CheckoutCompleted} {
		assert.False(t, CheckoutCompleted.CanTransition(next))
		assert.False(t, CheckoutCancelled.CanTransition(next))
	}
}

func TestPaymentMethodFlowIsExhaustive(t *testing.T) {
	cases := map[PaymentMethodKind]CheckoutState{
		MethodUnifiedWidget:    CheckoutCardFlow,
		MethodCardOnlyWidget:   CheckoutCardFlow,
		MethodBankTransfer:     CheckoutBankTransferFlow,
		MethodDelegateToParent: CheckoutDelegateFlow,
	}
	for kind, want := range cases {
		got, err := PaymentMethod{Kind: kind}.Flow()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := PaymentMethod{Kind: "PAYPAL"}.Flow()
	require.Error(t, err)
}

func TestMinStudentsRequired(t *testing.T) {
	five := 5
	assert.Equal(t, 7, (&Sport{IsGroup: true}).MinStudentsRequired())
	assert.Equal(t, 1, (&Sport{}).MinStudentsRequired())
	assert.Equal(t, 5, (&Sport{IsGroup: true, MinStudents: &five}).MinStudentsRequired())
}

func TestPaymentOutcomeValidate(t *testing.T) {
	require.NoError(t, PaymentOutcome{Kind: OutcomeNotRequired}.Validate())
	require.Error(t, PaymentOutcome{Kind: OutcomeCard}.Validate())
	require.Error(t, PaymentOutcome{Kind: OutcomeBankTransfer, BankTransfer: &BankTransferPayment{ReferenceNumber: "123456789012"}}.Validate())
	require.Error(t, PaymentOutcome{Kind: "CASH"}.Validate())
}

func TestPrivilegedRoles(t *testing.T) {
	assert.True(t, RoleSchool.IsPrivileged())
	assert.True(t, RoleAdmin.IsPrivileged())
	assert.False(t, RoleParent.IsPrivileged())
	assert.False(t, RoleAcademy.IsPrivileged())
}
