package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"splice/internal/language"
)

// KnownBuiltins lists the in-process providers a builtin provider may name.
var KnownBuiltins = []string{
	"transcript.import",
	"cuts.heuristic",
	"templates.captions",
	"assets.none",
	"assets.library",
	"timeline.assemble",
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.BackoffMode {
	case BackoffFixed, BackoffExponential:
	default:
		return fmt.Errorf("pipeline.backoff_mode: unsupported value %q (want fixed or exponential)", c.Pipeline.BackoffMode)
	}
	if c.Pipeline.BackoffMaxMillis < c.Pipeline.BackoffBaseMillis {
		return errors.New("pipeline.backoff_max_ms must be greater than or equal to pipeline.backoff_base_ms")
	}
	return nil
}

func (c *Config) validateProviders() error {
	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d].name must be set", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("providers: duplicate provider name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Kind {
		case ProviderCommand:
			if p.Command == "" {
				return fmt.Errorf("provider %q: command must be set for kind %q", p.Name, p.Kind)
			}
		case ProviderLLM:
			if p.Model == "" {
				return fmt.Errorf("provider %q: model must be set for kind %q", p.Name, p.Kind)
			}
			if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
				return fmt.Errorf("provider %q: base_url must be an http(s) URL", p.Name)
			}
		case ProviderBuiltin:
			if !slices.Contains(KnownBuiltins, p.Builtin) {
				return fmt.Errorf("provider %q: unknown builtin %q", p.Name, p.Builtin)
			}
		default:
			return fmt.Errorf("provider %q: unsupported kind %q (want command, llm, or builtin)", p.Name, p.Kind)
		}
	}
	return nil
}

func (c *Config) validateStages() error {
	for name, stage := range c.Stages {
		if !slices.Contains(StageNames, name) {
			return fmt.Errorf("stages.%s: unknown stage (want one of %s)", name, strings.Join(StageNames, ", "))
		}
		if stage.TimeoutSeconds < 0 {
			return fmt.Errorf("stages.%s.timeout_seconds must be non-negative", name)
		}
		if stage.MaxRetries < 0 {
			return fmt.Errorf("stages.%s.max_retries must be non-negative", name)
		}
		for _, ref := range stage.Providers {
			if _, ok := c.Provider(ref); !ok {
				return fmt.Errorf("stages.%s: provider %q is not defined in [[providers]]", name, ref)
			}
		}
		if stage.Language == "" {
			continue
		}
		lang, err := language.Normalize(stage.Language)
		if err != nil {
			return fmt.Errorf("stages.%s.language: %w", name, err)
		}
		stage.Language = lang
		c.Stages[name] = stage
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
