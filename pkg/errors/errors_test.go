package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	err := Clone(ErrInsufficientTeamSize, "need 7 students")
	assert.True(t, errors.Is(err, ErrInsufficientTeamSize))
	assert.False(t, errors.Is(err, ErrSubstituteLimitExceeded))
	assert.Equal(t, "need 7 students", err.Message)
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	err := WithDetails(ErrPaymentSetup, "stage", "payment")
	require.NotNil(t, err.Details)
	assert.Equal(t, "payment", err.Details["stage"])
	assert.Nil(t, ErrPaymentSetup.Details)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrNetwork, ""))
	assert.Equal(t, ErrNetwork.Code, FromError(wrapped).Code)
	assert.True(t, HasCode(wrapped, ErrNetwork.Code))
}
