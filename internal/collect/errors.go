package collect

import (
	"errors"
	"fmt"
	"strings"
)

// FailureClass partitions provider failures by how the retry and fallback
// machinery must react to them.
type FailureClass string

const (
	// FailureTransient covers timeouts and connection-level failures.
	// Retried within the same provider's budget.
	FailureTransient FailureClass = "transient"
	// FailureData covers malformed or missing fields in an otherwise
	// successful response. Fails the provider immediately.
	FailureData FailureClass = "data"
	// FailureCredential means the provider has no key configured. The
	// provider is skipped without consuming any retry budget.
	FailureCredential FailureClass = "credential"
)

// ReasonAllSourcesFailed is the terminal errorReason recorded when every
// provider in a chain exhausted its retries.
const ReasonAllSourcesFailed = "All data sources failed"

// ProviderError carries the source name and failure class alongside the
// underlying error.
type ProviderError struct {
	Source string
	Class  FailureClass
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient wraps err as a retriable network-level failure.
func Transient(source string, err error) error {
	return &ProviderError{Source: source, Class: FailureTransient, Err: err}
}

// Data wraps err as a normalization failure: the response arrived but
// could not be mapped into the canonical record.
func Data(source string, err error) error {
	return &ProviderError{Source: source, Class: FailureData, Err: err}
}

// CredentialMissing reports an unconfigured provider key.
func CredentialMissing(source string) error {
	return &ProviderError{Source: source, Class: FailureCredential, Err: errors.New("API key not configured")}
}

// ClassOf returns the failure class of err. Unclassified errors (raw
// http.Client failures, context deadlines) count as transient.
func ClassOf(err error) FailureClass {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return FailureTransient
}

// ExhaustionError is the terminal failure of a fallback chain: every
// provider failed after its full retry budget.
type ExhaustionError struct {
	Entity     string
	Identifier string
	Causes     []error
}

func (e *ExhaustionError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for _, cause := range e.Causes {
		parts = append(parts, cause.Error())
	}
	return fmt.Sprintf("%s %s: all data sources failed: [%s]", e.Entity, e.Identifier, strings.Join(parts, "; "))
}

func (e *ExhaustionError) Unwrap() []error { return e.Causes }
