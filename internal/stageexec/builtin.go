package stageexec

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Builtin is an in-process provider. It returns a value encoded as the
// invocation's output. Returning a *Failure selects the failure kind;
// other errors are reported as nonzero-exit.
type Builtin func(ctx context.Context, inv Invocation) (any, error)

// BuiltinRunner runs in-process providers under the same contract as
// external ones.
type BuiltinRunner struct {
	registry map[string]Builtin
}

// NewBuiltinRunner constructs a runner over the given registry.
func NewBuiltinRunner(registry map[string]Builtin) *BuiltinRunner {
	copied := make(map[string]Builtin, len(registry))
	for name, fn := range registry {
		copied[name] = fn
	}
	return &BuiltinRunner{registry: copied}
}

type builtinOutcome struct {
	value any
	err   error
}

// Execute implements Runner.
func (r *BuiltinRunner) Execute(ctx context.Context, stageID string, inv Invocation, timeout time.Duration) Result {
	fn, ok := r.registry[inv.Provider.Builtin]
	if !ok {
		return Fail(KindIOError, "unknown builtin %q", inv.Provider.Builtin)
	}

	runCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	done := make(chan builtinOutcome, 1)
	go func() {
		value, err := fn(runCtx, inv)
		done <- builtinOutcome{value: value, err: err}
	}()

	var out builtinOutcome
	select {
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Fail(KindTimeout, "builtin %s exceeded %s", inv.Provider.Builtin, timeout)
		}
		return Fail(KindIOError, "builtin %s cancelled", inv.Provider.Builtin)
	case out = <-done:
	}

	if out.err != nil {
		var failure *Failure
		if errors.As(out.err, &failure) {
			copied := *failure
			return Result{Failure: &copied}
		}
		return Fail(KindNonzeroExit, "builtin %s: %v", inv.Provider.Builtin, out.err)
	}
	raw, err := json.Marshal(out.value)
	if err != nil {
		res := Fail(KindUnparseable, "builtin %s: encode output: %v", inv.Provider.Builtin, err)
		res.Failure.Connected = true
		return res
	}
	return Success(raw)
}

var _ Runner = (*BuiltinRunner)(nil)
