package stageexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"splice/internal/config"
	"splice/internal/logging"
	"splice/internal/services"
)

// FailureKind classifies why an invocation produced no usable output.
type FailureKind string

const (
	KindNonzeroExit FailureKind = "nonzero-exit"
	KindTimeout     FailureKind = "timeout"
	KindUnparseable FailureKind = "unparseable-output"
	KindIOError     FailureKind = "io-error"
)

// Failure describes a failed invocation.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	// Connected is set when the collaborator was reached and answered, which
	// makes unparseable output a property of the provider rather than the
	// transport.
	Connected bool `json:"connected,omitempty"`
	ExitCode  int  `json:"exitCode,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	switch f.Kind {
	case KindTimeout:
		return services.ErrTimeout
	case KindIOError:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

// Transient reports whether retrying the same provider may succeed.
func (f *Failure) Transient() bool {
	switch f.Kind {
	case KindTimeout, KindNonzeroExit, KindIOError:
		return true
	case KindUnparseable:
		return !f.Connected
	default:
		return false
	}
}

// Result is the outcome of one invocation. Exactly one of Output and Failure
// is set.
type Result struct {
	Output  json.RawMessage
	Failure *Failure
	Elapsed time.Duration
}

// OK reports whether the invocation produced output.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Success builds a successful result.
func Success(raw json.RawMessage) Result {
	return Result{Output: raw}
}

// Fail builds a failed result.
func Fail(kind FailureKind, format string, args ...any) Result {
	return Result{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// Params are the stage-specific values a provider may consume.
type Params struct {
	Input      string
	DurationUs int64
	SampleRate int
	Model      string
	Language   string
}

// Prompt is the request text for language-model providers.
type Prompt struct {
	System string
	User   string
}

// Invocation describes one unit of work for a provider.
type Invocation struct {
	ProjectID   string
	ProjectRoot string
	Provider    config.Provider
	Params      Params
	// Request is the structured request document. Command providers receive
	// it as a JSON file; builtins receive the value itself.
	Request any
	Prompt  Prompt
	// ScratchRoot is the parent directory for scratch files; empty means the
	// system temp dir.
	ScratchRoot string
}

// Runner executes one invocation with a wall-clock bound.
type Runner interface {
	Execute(ctx context.Context, stageID string, inv Invocation, timeout time.Duration) Result
}

// Dispatcher routes an invocation to the runner for its provider kind.
type Dispatcher struct {
	Command Runner
	LLM     Runner
	Builtin Runner
	Logger  *slog.Logger
}

// NewDispatcher wires the default runners. builtins may be nil.
func NewDispatcher(logger *slog.Logger, builtins map[string]Builtin) *Dispatcher {
	return &Dispatcher{
		Command: NewCommandRunner(),
		LLM:     NewLLMRunner(nil),
		Builtin: NewBuiltinRunner(builtins),
		Logger:  logging.NewComponentLogger(logger, "stageexec"),
	}
}

// Execute implements Runner.
func (d *Dispatcher) Execute(ctx context.Context, stageID string, inv Invocation, timeout time.Duration) Result {
	var runner Runner
	switch inv.Provider.Kind {
	case config.ProviderCommand:
		runner = d.Command
	case config.ProviderLLM:
		runner = d.LLM
	case config.ProviderBuiltin:
		runner = d.Builtin
	}
	if runner == nil {
		return Fail(KindIOError, "no runner for provider %q of kind %q", inv.Provider.Name, inv.Provider.Kind)
	}

	ctx = services.WithStage(services.WithProvider(ctx, inv.Provider.Name), stageID)
	logger := logging.WithContext(ctx, d.Logger)
	logger.Debug("provider invocation started",
		logging.String("kind", inv.Provider.Kind),
		logging.Duration("timeout", timeout),
	)

	started := time.Now()
	result := runner.Execute(ctx, stageID, inv, timeout)
	result.Elapsed = time.Since(started)

	if result.OK() {
		logger.Debug("provider invocation succeeded",
			logging.Duration("elapsed", result.Elapsed),
			logging.Int("output_bytes", len(result.Output)),
		)
	} else {
		logger.Debug("provider invocation failed",
			logging.Duration("elapsed", result.Elapsed),
			logging.String("failure_kind", string(result.Failure.Kind)),
			logging.String("failure", result.Failure.Message),
		)
	}
	return result
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

var _ Runner = (*Dispatcher)(nil)
