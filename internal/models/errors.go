package models

import (
	"errors"
	"fmt"
)

// ErrConcurrencyConflict signals that a conditional write lost its race and
// the caller may retry.
var ErrConcurrencyConflict = errors.New("concurrent modification, retry")

// ValidationError rejects a request before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError is returned when a deduction asks for more than the
// batch holds. Available is the quantity observed at rejection time.
type InsufficientStockError struct {
	MedicineID int
	BatchID    int
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock in batch %d of medicine %d: requested %d, available %d",
		e.BatchID, e.MedicineID, e.Requested, e.Available)
}

// OverpaymentError rejects a payment that would push an invoice past its
// total.
type OverpaymentError struct {
	InvoiceID  int
	Total      float64
	AmountPaid float64
	Attempted  float64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %.2f exceeds balance on invoice %d: total %.2f, already paid %.2f",
		e.Attempted, e.InvoiceID, e.Total, e.AmountPaid)
}

// NotFoundError identifies a missing record by resource name and id.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err is the caller's fault and should map to a
// 4xx response rather than a 500.
func IsClientError(err error) bool {
	var validation *ValidationError
	var insufficient *InsufficientStockError
	var overpayment *OverpaymentError
	var notFound *NotFoundError
	return errors.As(err, &validation) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &overpayment) ||
		errors.As(err, &notFound)
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
