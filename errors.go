package clientledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("clientledger: not found")
	ErrAlreadyExists = errors.New("clientledger: already exists")
	ErrInvalidInput  = errors.New("clientledger: invalid input")

	// Account errors
	ErrAccountNotFound   = errors.New("clientledger: client account not found")
	ErrEmailRequired     = errors.New("clientledger: email is required")
	ErrEmailTaken        = errors.New("clientledger: email already in use")
	ErrProcessorRefTaken = errors.New("clientledger: processor customer id already linked to another account")

	// Order errors
	ErrOrderNotFound    = errors.New("clientledger: order not found")
	ErrOrderNumberTaken = errors.New("clientledger: order number already in use")
	ErrNegativeAmount   = errors.New("clientledger: order amount must be non-negative")
	ErrCurrencyMismatch = errors.New("clientledger: order currency does not match account currency")
	ErrStatusTransition = errors.New("clientledger: invalid order status transition")
	ErrAccountRequired  = errors.New("clientledger: order must reference a client account")

	// Store errors
	ErrWriteConflict = errors.New("clientledger: transient write conflict")
	ErrStoreClosed   = errors.New("clientledger: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("clientledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsConflict returns true if the error is a transient write conflict that
// the retry wrapper may re-attempt.
func IsConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}
