package stageexec

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"splice/internal/config"
	"splice/internal/services/llm"
)

// Completer is the part of the LLM client the runner needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFactory builds a client for a provider definition.
type CompleterFactory func(config.Provider) Completer

// LLMRunner sends stage prompts to OpenAI-compatible chat endpoints.
type LLMRunner struct {
	newClient CompleterFactory
}

// NewLLMRunner constructs an LLM runner. A nil factory uses llm.NewClient
// with no HTTP timeout of its own; the stage timeout bounds each call.
func NewLLMRunner(factory CompleterFactory) *LLMRunner {
	if factory == nil {
		factory = func(p config.Provider) Completer {
			return llm.NewClient(llm.Config{
				APIKey:      p.APIKey,
				BaseURL:     p.BaseURL,
				Model:       p.Model,
				Referer:     p.Referer,
				Title:       p.Title,
				Temperature: p.Temperature,
			}, llm.WithHTTPClient(&http.Client{}))
		}
	}
	return &LLMRunner{newClient: factory}
}

// Execute implements Runner.
func (r *LLMRunner) Execute(ctx context.Context, stageID string, inv Invocation, timeout time.Duration) Result {
	if strings.TrimSpace(inv.Prompt.System) == "" || strings.TrimSpace(inv.Prompt.User) == "" {
		return Fail(KindIOError, "stage %s has no prompt for provider %q", stageID, inv.Provider.Name)
	}
	provider := inv.Provider
	if inv.Params.Model != "" {
		provider.Model = inv.Params.Model
	}

	runCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	content, err := r.newClient(provider).CompleteJSON(runCtx, inv.Prompt.System, inv.Prompt.User)
	if err != nil {
		return classifyLLMError(runCtx, provider.Name, timeout, err)
	}

	raw, err := llm.ExtractJSON(content)
	if err != nil {
		res := Fail(KindUnparseable, "%s returned unparseable content: %v", provider.Name, err)
		res.Failure.Connected = true
		return res
	}
	return Success(raw)
}

func classifyLLMError(ctx context.Context, name string, timeout time.Duration, err error) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Fail(KindTimeout, "%s exceeded %s", name, timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Fail(KindTimeout, "%s: %v", name, err)
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		res := Fail(KindNonzeroExit, "%s: http %d: %s", name, statusErr.StatusCode, tail(statusErr.Body, stderrTailLimit))
		res.Failure.ExitCode = statusErr.StatusCode
		res.Failure.Connected = true
		return res
	}
	var empty *llm.EmptyContentError
	var malformed *llm.ResponseError
	if errors.As(err, &empty) || errors.As(err, &malformed) {
		res := Fail(KindUnparseable, "%s: %v", name, err)
		res.Failure.Connected = true
		return res
	}
	return Fail(KindIOError, "%s: %v", name, err)
}

var _ Runner = (*LLMRunner)(nil)
