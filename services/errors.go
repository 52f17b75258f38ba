package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"rentledger/config"
)

// ValidationError reports malformed or out-of-range input. It is always
// surfaced to the caller and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an invariant violation such as a double-booked unit
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflictError creates a ConflictError with a formatted message
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NewNotFoundError creates a NotFoundError with a formatted message
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an illegal state-machine move
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// StoreUnavailableError is returned when the entity store keeps failing
// after all retry attempts are exhausted.
type StoreUnavailableError struct {
	Attempts int
	Err      error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// isDomainError reports whether err belongs to the caller-facing taxonomy
// and must never be retried.
func isDomainError(err error) bool {
	var ve *ValidationError
	var ce *ConflictError
	var ne *NotFoundError
	var te *InvalidTransitionError
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ne) || errors.As(err, &te)
}

// isTransient reports whether err looks like a transient store failure
// (connection loss, serialization failure, lock timeout).
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
		// Class 08: connection exceptions
		if pqErr.Code.Class() == "08" {
			return true
		}
	}
	return false
}

// isUniqueViolation reports whether err is a unique-constraint violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == "23505"
}

// withRetry runs fn inside a transaction, retrying transient store failures
// with bounded backoff. Domain errors roll the transaction back and are
// surfaced immediately; repeated transient failures surface as
// StoreUnavailableError with no partial effect.
func withRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	attempts := config.AppConfig.StoreRetryCount
	if attempts < 1 {
		attempts = 1
	}
	backoff := config.AppConfig.StoreRetryBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.Transaction(fn)
		if err == nil || isDomainError(err) {
			return err
		}
		if !isTransient(err) {
			return err
		}
		if attempt < attempts {
			log.Printf("Transient store failure (attempt %d/%d): %v", attempt, attempts, err)
			time.Sleep(backoff * time.Duration(attempt))
		}
	}
	return &StoreUnavailableError{Attempts: attempts, Err: err}
}
