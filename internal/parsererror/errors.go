package parsererror

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by external classifiers. The categorization engine
// absorbs them and moves on to the next tier.
var (
	ErrClassifierUnavailable    = errors.New("classifier unavailable")
	ErrClassifierTimeout        = errors.New("classifier timed out")
	ErrClassifierMalformedReply = errors.New("classifier reply is malformed")
)

// ParseError represents an error during parsing
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure
type ValidationError struct {
	FilePath string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.FilePath, e.Reason)
}

// CategorizationError represents a categorization failure
type CategorizationError struct {
	Transaction string
	Strategy    string
	Err         error
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("categorization failed for %s using %s: %v",
		e.Transaction, e.Strategy, e.Err)
}

func (e *CategorizationError) Unwrap() error {
	return e.Err
}

// NoMappingFoundError is returned when no active mapping exists for the card,
// the card's institution or the fallback institution. It aborts the run.
type NoMappingFoundError struct {
	CreditCardID string
	Institutions []string
}

func (e *NoMappingFoundError) Error() string {
	card := e.CreditCardID
	if card == "" {
		card = "<none>"
	}
	if len(e.Institutions) == 0 {
		return fmt.Sprintf("no active CSV mapping found for credit card %s", card)
	}
	return fmt.Sprintf("no active CSV mapping found for credit card %s (institutions tried: %s)",
		card, strings.Join(e.Institutions, ", "))
}

// InvalidMappingError is returned when a resolved mapping is unusable.
type InvalidMappingError struct {
	MappingID   string
	MappingName string
	Err         error
}

func (e *InvalidMappingError) Error() string {
	return fmt.Sprintf("invalid CSV mapping %q (%s): %v", e.MappingName, e.MappingID, e.Err)
}

func (e *InvalidMappingError) Unwrap() error {
	return e.Err
}

// InsufficientColumnsError is a row-level error for records shorter than the
// mapping requires.
type InsufficientColumnsError struct {
	Expected int
	Actual   int
}

func (e *InsufficientColumnsError) Error() string {
	return fmt.Sprintf("insufficient columns: expected at least %d, got %d", e.Expected, e.Actual)
}

// InvalidDateError is a row-level error raised when no configured pattern
// matches the date cell.
type InvalidDateError struct {
	Value   string
	Formats []string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date '%s' (formats tried: %s)", e.Value, strings.Join(e.Formats, ", "))
}

// InvalidAmountError is a row-level error for amounts that are unparsable or
// zero.
type InvalidAmountError struct {
	Value  string
	Reason string
	Err    error
}

func (e *InvalidAmountError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid amount '%s': %s: %v", e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid amount '%s': %s", e.Value, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error {
	return e.Err
}

// IsRowLevel reports whether err only invalidates a single row.
func IsRowLevel(err error) bool {
	var cols *InsufficientColumnsError
	var date *InvalidDateError
	var amount *InvalidAmountError
	return errors.As(err, &cols) || errors.As(err, &date) || errors.As(err, &amount)
}

// IsClassifierFailure reports whether err is one of the classifier sentinels.
func IsClassifierFailure(err error) bool {
	return errors.Is(err, ErrClassifierUnavailable) ||
		errors.Is(err, ErrClassifierTimeout) ||
		errors.Is(err, ErrClassifierMalformedReply)
}
