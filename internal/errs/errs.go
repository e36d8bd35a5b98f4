// Package errs defines the typed error kinds returned by the analysis engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

// Error kinds surfaced to the API layer.
const (
	Unknown                  Kind = "unknown"
	InvalidInput             Kind = "invalid_input"
	OracleTimeout            Kind = "oracle_timeout"
	OracleUnavailable        Kind = "oracle_unavailable"
	OracleParseFailure       Kind = "oracle_parse_failure"
	AnalysisNotFound         Kind = "analysis_not_found"
	OrganizationNotFound     Kind = "organization_not_found"
	GenerationInProgress     Kind = "generation_in_progress"
	TenantIsolationViolation Kind = "tenant_isolation_violation"
)

// Error is an engine error carrying a Kind.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "analyze"
	Msg  string
	Err  error

	// Transient marks failures worth one retry (network errors, 429, 5xx).
	Transient bool
}

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrInvalidInput         = &Error{Kind: InvalidInput, Msg: "invalid input"}
	ErrOracleTimeout        = &Error{Kind: OracleTimeout, Msg: "oracle timed out"}
	ErrOracleUnavailable    = &Error{Kind: OracleUnavailable, Msg: "oracle unavailable"}
	ErrOracleParseFailure   = &Error{Kind: OracleParseFailure, Msg: "oracle response could not be parsed"}
	ErrAnalysisNotFound     = &Error{Kind: AnalysisNotFound, Msg: "analysis not found"}
	ErrOrgNotFound          = &Error{Kind: OrganizationNotFound, Msg: "organization not found"}
	ErrGenerationInProgress = &Error{Kind: GenerationInProgress, Msg: "generation already in progress"}
	ErrTenantIsolation      = &Error{Kind: TenantIsolationViolation, Msg: "tenant isolation violation"}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may retry the whole operation.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case OracleTimeout, OracleUnavailable, OracleParseFailure, GenerationInProgress:
		return true
	}
	return false
}

// E builds an error of the given kind.
func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, op string, err error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsTransient reports whether err is a transient oracle failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == OracleUnavailable && e.Transient
}
