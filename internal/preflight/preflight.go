package preflight

import (
	"context"
	"strings"

	"splice/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Option customizes RunAll.
type Option func(*options)

type options struct {
	skipLLM bool
}

// WithoutLLM skips LLM reachability checks.
func WithoutLLM() Option {
	return func(o *options) {
		o.skipLLM = true
	}
}

// RunAll executes every applicable preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts ...Option) []Result {
	if cfg == nil {
		return nil
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
	}
	if cfg.Assets.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Stock library", cfg.Assets.LibraryDir))
	}

	providers := ReferencedProviders(cfg)

	var requirements []Requirement
	for _, p := range providers {
		if p.Kind == config.ProviderCommand {
			requirements = append(requirements, Requirement{
				Name:        "Command " + p.Name,
				Command:     p.Command,
				Description: "Stage provider " + p.Name,
			})
		}
	}
	results = append(results, CheckBinaries(requirements)...)

	if o.skipLLM {
		return results
	}
	seen := make(map[string]bool)
	for _, p := range providers {
		if p.Kind != config.ProviderLLM {
			continue
		}
		key := strings.Join([]string{p.BaseURL, p.APIKey, p.Model}, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, CheckLLM(ctx, "LLM "+p.Name, p))
	}
	return results
}

// ReferencedProviders returns the providers named by any stage chain, in
// stage order without duplicates. Unknown names are skipped; config
// validation reports them.
func ReferencedProviders(cfg *config.Config) []config.Provider {
	var out []config.Provider
	seen := make(map[string]bool)
	for _, stageName := range config.StageNames {
		for _, name := range cfg.Stage(stageName).Providers {
			if seen[name] {
				continue
			}
			seen[name] = true
			if p, ok := cfg.Provider(name); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
