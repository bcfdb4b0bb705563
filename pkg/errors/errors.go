package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Registration and payment flow errors.
var (
	ErrUnknownPricingKey          = New("UNKNOWN_PRICING_KEY", http.StatusNotFound, "no price is configured for this sport or country")
	ErrInvalidPriceTable          = New("INVALID_PRICE_TABLE", http.StatusInternalServerError, "price table entry is invalid")
	ErrPaymentSetup               = New("PAYMENT_SETUP_ERROR", http.StatusBadGateway, "payment could not be set up")
	ErrProviderDeclined           = New("PROVIDER_DECLINED", http.StatusPaymentRequired, "payment was declined")
	ErrInsufficientTeamSize       = New("INSUFFICIENT_TEAM_SIZE", http.StatusUnprocessableEntity, "not enough students selected for this sport")
	ErrSubstituteLimitExceeded    = New("SUBSTITUTE_LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "substitute limit reached")
	ErrSubstituteNotSelected      = New("SUBSTITUTE_NOT_SELECTED", http.StatusUnprocessableEntity, "substitute must be one of the selected students")
	ErrStudentNotEligible         = New("STUDENT_NOT_ELIGIBLE", http.StatusUnprocessableEntity, "student is not eligible for this category")
	ErrFileTooLarge               = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the size limit")
	ErrInvalidFileType            = New("INVALID_FILE_TYPE", http.StatusUnsupportedMediaType, "file type is not accepted")
	ErrInvalidReferenceFormat     = New("INVALID_REFERENCE_FORMAT", http.StatusBadRequest, "reference number must be exactly 12 digits")
	ErrPartialRegistrationFailure = New("PARTIAL_REGISTRATION_FAILURE", http.StatusMultiStatus, "some registrations failed")
	ErrRegistrationRejected       = New("REGISTRATION_REJECTED", http.StatusUnprocessableEntity, "no registration could be recorded")
	ErrNetwork                    = New("NETWORK_ERROR", http.StatusServiceUnavailable, "payment provider is unreachable, please try again")
	ErrPaymentInProgress          = New("PAYMENT_IN_PROGRESS", http.StatusConflict, "a payment confirmation is in progress")
	ErrInvalidTransition          = New("INVALID_TRANSITION", http.StatusConflict, "action is not allowed in the current checkout state")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Details != nil {
		clone.Details = make(map[string]interface{}, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

// WithDetails returns a copy carrying the given detail entry.
func WithDetails(err *Error, key string, value interface{}) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	if clone.Details == nil {
		clone.Details = map[string]interface{}{}
	}
	clone.Details[key] = value
	return clone
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
