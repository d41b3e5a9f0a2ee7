// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientBars    = errors.New("insufficient bars")
	ErrRangeOutOfBounds    = errors.New("opening range out of bounds")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPositionLimit       = errors.New("position limit reached")
	ErrNoOpenPosition      = errors.New("no open position")
	ErrAlreadyClosed       = errors.New("position already closed")
	ErrMalformedBar        = errors.New("malformed bar")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrDatabaseError       = errors.New("database error")
)

// LedgerError represents a failure of a ledger operation. Ledger errors are
// never silently dropped: they indicate a risk-limit breach or a
// correctness violation (double-sell attempt).
type LedgerError struct {
	Symbol    string
	Operation string
	Err       error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error [%s] %s: %v", e.Operation, e.Symbol, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(operation, symbol string, err error) *LedgerError {
	return &LedgerError{
		Symbol:    symbol,
		Operation: operation,
		Err:       err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// IntegrityError represents a data-integrity alert, such as a time-based
// liquidation that found no BUY record to settle.
type IntegrityError struct {
	Symbol  string
	Message string
	Err     error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity alert [%s]: %s: %v", e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("integrity alert [%s]: %s", e.Symbol, e.Message)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// NewIntegrityError creates a new IntegrityError.
func NewIntegrityError(symbol, message string, err error) *IntegrityError {
	return &IntegrityError{
		Symbol:  symbol,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
