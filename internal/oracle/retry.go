package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"sowmatch/internal/errs"
)

// Observer receives one event per oracle attempt.
type Observer interface {
	ObserveOracleCall(operation string, kind errs.Kind, elapsed time.Duration)
}

// Policy bounds oracle calls.
type Policy struct {
	Timeout   time.Duration // per attempt
	Retries   uint          // extra attempts for transient unavailability
	RetryWait time.Duration
}

// DefaultPolicy allows one retry on transient failures and never retries
// timeouts.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:   120 * time.Second,
		Retries:   1,
		RetryWait: 2 * time.Second,
	}
}

// Guarded wraps an Oracle with a per-attempt timeout and a bounded retry.
type Guarded struct {
	next     Oracle
	policy   Policy
	logger   *slog.Logger
	observer Observer
}

// NewGuarded creates a guarded oracle. observer may be nil.
func NewGuarded(next Oracle, policy Policy, logger *slog.Logger, observer Observer) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, policy: policy, logger: logger, observer: observer}
}

// Complete runs the request. Only transient OracleUnavailable failures are
// retried; everything else is returned after the first attempt.
func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := g.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		if errs.IsTransient(err) {
			g.logger.Warn("transient oracle failure",
				"operation", req.Operation, "attempt", attempt, "error", err)
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(g.policy.RetryWait)),
		backoff.WithMaxTries(g.policy.Retries+1),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		if errs.KindOf(err) == errs.Unknown {
			// Caller canceled between attempts.
			err = errs.Wrap(errs.OracleUnavailable, "oracle.complete", err, "oracle request abandoned")
		}
		return "", err
	}
	return text, nil
}

func (g *Guarded) attempt(ctx context.Context, req Request) (string, error) {
	callCtx := ctx
	if g.policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Complete(callCtx, req)
	elapsed := time.Since(start)

	if err != nil && errs.KindOf(err) == errs.Unknown {
		// Deadline hit by an oracle that does not classify its own errors.
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = errs.Wrap(errs.OracleTimeout, "oracle.complete", err, "oracle request timed out")
		} else {
			err = errs.Wrap(errs.OracleUnavailable, "oracle.complete", err, "oracle request failed")
		}
	}

	if g.observer != nil {
		kind := errs.Kind("ok")
		if err != nil {
			kind = errs.KindOf(err)
		}
		g.observer.ObserveOracleCall(req.Operation, kind, elapsed)
	}

	if err != nil {
		g.logger.Debug("oracle call failed", "operation", req.Operation, "elapsed", elapsed, "error", err)
		return "", err
	}
	g.logger.Debug("oracle call completed", "operation", req.Operation, "elapsed", elapsed, "chars", len(text))
	return text, nil
}
