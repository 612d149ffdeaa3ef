// Package domain defines the core domain models for kasb.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the KASB-<AREA>-<NNNN> layout.
type DomainError struct {
	Code    string // Error code (e.g., "KASB-VAL-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// FieldError ties a validation failure to the form field that caused it.
type FieldError struct {
	Field string
	Err   *DomainError
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Message
}

// Unwrap exposes the coded error so errors.Is works against the catalog below.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// AsFieldError returns the FieldError wrapped in err, if any.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ============================================================================
// Validation Errors (VAL)
// ============================================================================

var (
	// ErrInvalidPhone indicates the phone is not "+" followed by 7-14 digits.
	ErrInvalidPhone = NewDomainError("KASB-VAL-4001", "enter a valid phone number")

	// ErrInvalidPassword indicates the password breaks the charset/length/letter+digit rule.
	ErrInvalidPassword = NewDomainError("KASB-VAL-4002", "password must be at least 6 characters and contain a letter and a digit")

	// ErrPasswordMismatch indicates confirmPassword differs from password.
	ErrPasswordMismatch = NewDomainError("KASB-VAL-4003", "passwords do not match")

	// ErrInvalidOTP indicates the code is not exactly 4 digits.
	ErrInvalidOTP = NewDomainError("KASB-VAL-4004", "enter the 4-digit code")

	// ErrInvalidTelegram indicates the handle is not @ followed by 3+ word characters.
	ErrInvalidTelegram = NewDomainError("KASB-VAL-4005", "telegram username must look like @username")

	// ErrInvalidName indicates the display name is too short or has invalid characters.
	ErrInvalidName = NewDomainError("KASB-VAL-4006", "name must contain at least 2 letters")

	// ErrGenderRequired indicates no (or an unknown) gender was selected.
	ErrGenderRequired = NewDomainError("KASB-VAL-4007", "select a gender")

	// ErrRegionRequired indicates no (or an unknown) region was selected.
	ErrRegionRequired = NewDomainError("KASB-VAL-4008", "select a region")

	// ErrInvalidRole indicates an unknown account role.
	ErrInvalidRole = NewDomainError("KASB-VAL-4009", "unknown account role")

	// ErrTelegramNotFound indicates the telegram existence check found no such user.
	ErrTelegramNotFound = NewDomainError("KASB-VAL-4010", "telegram user not found")
)

// ============================================================================
// Flow Errors (FLOW)
// ============================================================================

var (
	// ErrIllegalTransition indicates a step change not present in the transition table.
	ErrIllegalTransition = NewDomainError("KASB-FLOW-4090", "illegal step transition")

	// ErrWrongStep indicates an action was invoked outside the step that owns it.
	ErrWrongStep = NewDomainError("KASB-FLOW-4091", "action not available at this step")

	// ErrBusy indicates a request for this attempt is already in flight.
	ErrBusy = NewDomainError("KASB-FLOW-4092", "request already in progress")

	// ErrCooldownActive indicates the OTP resend window has not elapsed.
	ErrCooldownActive = NewDomainError("KASB-FLOW-4290", "code was sent recently, wait before resending")

	// ErrAttemptClosed indicates the attempt finished and must be reset before reuse.
	ErrAttemptClosed = NewDomainError("KASB-FLOW-4100", "dialog is closed")

	// ErrAttemptReset indicates the dialog was reset while a request was in flight;
	// the late result was discarded.
	ErrAttemptReset = NewDomainError("KASB-FLOW-4101", "dialog was reset")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrNotAuthenticated indicates no session is present.
	ErrNotAuthenticated = NewDomainError("KASB-SESS-4010", "not logged in")

	// ErrSessionExpired indicates the persisted token is past its expiry.
	ErrSessionExpired = NewDomainError("KASB-SESS-4011", "session expired")

	// ErrSessionCorrupt indicates persisted session data could not be decoded.
	ErrSessionCorrupt = NewDomainError("KASB-SESS-5001", "stored session is unreadable")

	// ErrInvalidCredentials indicates the backend rejected phone/password.
	ErrInvalidCredentials = NewDomainError("KASB-SESS-4012", "invalid phone number or password")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError("KASB-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the backend stayed unreachable after retries.
	ErrServiceUnavailable = NewDomainError("KASB-SYS-5030", "service unavailable, try again later")

	// ErrUnexpectedResponse indicates the backend answered with an unreadable payload.
	ErrUnexpectedResponse = NewDomainError("KASB-SYS-5020", "unexpected response from server")
)
