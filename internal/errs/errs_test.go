package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := E(AnalysisNotFound, "generate", "analysis %s", "abc")
	wrapped := fmt.Errorf("handler: %w", err)

	if !errors.Is(wrapped, ErrAnalysisNotFound) {
		t.Error("errors.Is(wrapped, ErrAnalysisNotFound) = false, want true")
	}
	if errors.Is(wrapped, ErrInvalidInput) {
		t.Error("errors.Is(wrapped, ErrInvalidInput) = true, want false")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed", E(InvalidInput, "analyze", "empty"), InvalidInput},
		{"wrapped", fmt.Errorf("x: %w", Wrap(OracleTimeout, "complete", errors.New("deadline"), "timed out")), OracleTimeout},
		{"plain", errors.New("boom"), Unknown},
		{"nil", nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(OracleUnavailable, "complete", errors.New("connection refused"), "request failed")
	want := "complete: request failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &Error{Kind: OracleParseFailure}
	if bare.Error() != string(OracleParseFailure) {
		t.Errorf("Error() = %q, want %q", bare.Error(), OracleParseFailure)
	}
}

func TestIsTransient(t *testing.T) {
	transient := &Error{Kind: OracleUnavailable, Transient: true}
	permanent := &Error{Kind: OracleUnavailable}
	timeout := &Error{Kind: OracleTimeout, Transient: true}

	if !IsTransient(transient) {
		t.Error("IsTransient(transient unavailable) = false, want true")
	}
	if IsTransient(permanent) {
		t.Error("IsTransient(permanent unavailable) = true, want false")
	}
	if IsTransient(timeout) {
		t.Error("IsTransient(timeout) = true, want false")
	}
}

func TestRetryable(t *testing.T) {
	if !ErrGenerationInProgress.Retryable() {
		t.Error("GenerationInProgress should be retryable")
	}
	if ErrInvalidInput.Retryable() {
		t.Error("InvalidInput should not be retryable")
	}
}
