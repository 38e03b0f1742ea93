package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"splice/internal/artifact"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/stageexec"
)

// ErrChainExhausted reports that every provider in a stage's chain failed.
var ErrChainExhausted = errors.New("provider chain exhausted")

// KindRejected marks an attempt whose output was received but rejected by
// the acceptor.
const KindRejected = "rejected"

// Acceptor inspects a successful runner output. A non-nil error rejects the
// output and rotates to the next provider without retrying.
type Acceptor func(provider string, raw json.RawMessage) error

// Attempt records one runner invocation.
type Attempt struct {
	Provider   string               `json:"provider"`
	Number     int                  `json:"attempt"`
	OK         bool                 `json:"ok"`
	Kind       string               `json:"kind,omitempty"`
	Message    string               `json:"message,omitempty"`
	Elapsed    time.Duration        `json:"elapsedNs"`
	Violations []artifact.Violation `json:"violations,omitempty"`
}

// ProviderFailure aggregates the attempts made against one provider.
type ProviderFailure struct {
	Provider string    `json:"provider"`
	Reason   string    `json:"reason"`
	Attempts []Attempt `json:"attempts"`
}

// Outcome is the result of a successful policy run.
type Outcome struct {
	Provider string
	Output   json.RawMessage
	Attempts []Attempt
	History  []ProviderFailure
}

// ExhaustedError is returned when no provider produced accepted output.
type ExhaustedError struct {
	StageID string
	History []ProviderFailure
	// Last is the final rejection or runner failure.
	Last error
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.History))
	for _, h := range e.History {
		parts = append(parts, fmt.Sprintf("%s (%s)", h.Provider, h.Reason))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %v: no providers configured", e.StageID, ErrChainExhausted)
	}
	return fmt.Sprintf("%s: %v: %s", e.StageID, ErrChainExhausted, strings.Join(parts, "; "))
}

// Unwrap exposes ErrChainExhausted and the final failure so callers can
// detect a schema violation from the last provider.
func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrChainExhausted}
	}
	return []error{ErrChainExhausted, e.Last}
}

// Request describes one stage execution across its provider chain.
type Request struct {
	StageID string
	// Chain holds one invocation per provider, in fallback order.
	Chain []stageexec.Invocation
	// MaxAttempts bounds runner invocations per provider; values below one
	// mean a single attempt.
	MaxAttempts int
	Timeout     time.Duration
	Accept      Acceptor
}

// Policy runs requests against a Runner.
type Policy struct {
	Runner  stageexec.Runner
	Backoff Backoff
	Logger  *slog.Logger
	// Observe, when set, is called after every attempt.
	Observe func(Attempt)
	sleep   Sleeper
}

// New constructs a policy. logger may be nil.
func New(runner stageexec.Runner, backoff Backoff, logger *slog.Logger) *Policy {
	return &Policy{
		Runner:  runner,
		Backoff: backoff,
		Logger:  logging.NewComponentLogger(logger, "fallback"),
		sleep:   sleepContext,
	}
}

// Run tries each provider in order until one produces accepted output.
func (p *Policy) Run(ctx context.Context, req Request) (Outcome, error) {
	if p.Runner == nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, req.StageID, "fallback", "no runner configured", nil)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		attempts []Attempt
		history  []ProviderFailure
		last     error
	)
	for _, inv := range req.Chain {
		name := inv.Provider.Name
		providerCtx := services.WithProvider(ctx, name)
		logger := logging.WithContext(providerCtx, p.logger())
		failure := ProviderFailure{Provider: name}

	retry:
		for n := 1; n <= maxAttempts; n++ {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			result := p.Runner.Execute(providerCtx, req.StageID, inv, req.Timeout)
			attempt := Attempt{Provider: name, Number: n, Elapsed: result.Elapsed}

			if !result.OK() {
				attempt.Kind = string(result.Failure.Kind)
				attempt.Message = result.Failure.Message
				last = result.Failure
				p.record(&attempts, &failure, attempt)

				if !result.Failure.Transient() {
					failure.Reason = "permanent " + attempt.Kind
					logger.Info("provider output unusable; rotating",
						logging.String(logging.FieldEventType, "provider_rotate"),
						logging.String("failure_kind", attempt.Kind),
						logging.Int("attempt", n),
					)
					break retry
				}
				failure.Reason = fmt.Sprintf("%s after %d attempt(s)", attempt.Kind, n)
				if n == maxAttempts {
					logging.WarnWithContext(logger, "provider attempts exhausted", "provider_exhausted",
						logging.String("failure_kind", attempt.Kind),
						logging.String("failure", attempt.Message),
						logging.Int("attempts", n),
						logging.String(logging.FieldErrorHint, "check provider availability and configuration"),
						logging.String(logging.FieldImpact, "falling back to the next provider"),
					)
					break retry
				}
				delay := p.Backoff.Delay(n)
				logger.Info("provider attempt failed; retrying",
					logging.String(logging.FieldEventType, "provider_retry"),
					logging.String("failure_kind", attempt.Kind),
					logging.Int("attempt", n),
					logging.Duration("backoff", delay),
				)
				if err := p.sleeper()(ctx, delay); err != nil {
					return Outcome{}, err
				}
				continue
			}

			if req.Accept != nil {
				if err := req.Accept(name, result.Output); err != nil {
					attempt.Kind = KindRejected
					attempt.Message = err.Error()
					if v, ok := artifact.AsViolations(err); ok {
						attempt.Violations = v.Items
					}
					last = err
					p.record(&attempts, &failure, attempt)
					failure.Reason = "rejected output"
					logger.Info("provider output rejected; rotating",
						logging.String(logging.FieldEventType, "provider_rejected"),
						logging.Int("violations", len(attempt.Violations)),
						logging.Error(err),
					)
					break retry
				}
			}

			attempt.OK = true
			p.record(&attempts, nil, attempt)
			return Outcome{
				Provider: name,
				Output:   result.Output,
				Attempts: attempts,
				History:  history,
			}, nil
		}
		history = append(history, failure)
	}

	return Outcome{Attempts: attempts, History: history}, &ExhaustedError{
		StageID: req.StageID,
		History: history,
		Last:    last,
	}
}

func (p *Policy) record(all *[]Attempt, failure *ProviderFailure, attempt Attempt) {
	*all = append(*all, attempt)
	if failure != nil {
		failure.Attempts = append(failure.Attempts, attempt)
	}
	if p.Observe != nil {
		p.Observe(attempt)
	}
}

func (p *Policy) logger() *slog.Logger {
	if p.Logger == nil {
		return logging.NewNop()
	}
	return p.Logger
}

func (p *Policy) sleeper() Sleeper {
	if p.sleep == nil {
		return sleepContext
	}
	return p.sleep
}
