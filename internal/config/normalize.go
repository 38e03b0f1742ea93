package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeStages()
	c.normalizeProviders()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.BackoffMode = strings.ToLower(strings.TrimSpace(c.Pipeline.BackoffMode))
	if c.Pipeline.BackoffMode == "" {
		c.Pipeline.BackoffMode = defaultBackoffMode
	}
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		c.Pipeline.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Pipeline.MaxRetriesPerProvider <= 0 {
		c.Pipeline.MaxRetriesPerProvider = defaultMaxRetriesPerProvider
	}
	if c.Pipeline.BackoffBaseMillis < 0 {
		c.Pipeline.BackoffBaseMillis = 0
	}
	if c.Pipeline.BackoffMaxMillis <= 0 {
		c.Pipeline.BackoffMaxMillis = defaultBackoffMaxMillis
	}
	if c.Pipeline.MaxConcurrentProjects <= 0 {
		c.Pipeline.MaxConcurrentProjects = defaultMaxConcurrentProjects
	}
}

func (c *Config) normalizeStages() {
	if c.Stages == nil {
		c.Stages = map[string]Stage{}
	}
	normalized := make(map[string]Stage, len(c.Stages))
	for name, stage := range c.Stages {
		key := strings.ToLower(strings.TrimSpace(name))
		chain := make([]string, 0, len(stage.Providers))
		for _, p := range stage.Providers {
			if p = strings.TrimSpace(p); p != "" {
				chain = append(chain, p)
			}
		}
		stage.Providers = chain
		stage.Model = strings.TrimSpace(stage.Model)
		stage.Language = strings.TrimSpace(stage.Language)
		if stage.Language == "" {
			stage.Language = defaultLanguage
		}
		if stage.SampleRate <= 0 {
			stage.SampleRate = defaultSampleRate
		}
		normalized[key] = stage
	}
	c.Stages = normalized
}

func (c *Config) normalizeProviders() {
	envKey := lookupLLMKey()
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		p.Command = strings.TrimSpace(p.Command)
		p.Builtin = strings.TrimSpace(p.Builtin)
		if p.Kind != ProviderLLM {
			continue
		}
		p.BaseURL = strings.TrimSpace(p.BaseURL)
		if p.BaseURL == "" {
			p.BaseURL = defaultLLMBaseURL
		}
		p.APIKey = strings.TrimSpace(p.APIKey)
		if p.APIKey == "" {
			p.APIKey = envKey
		}
		p.Model = strings.TrimSpace(p.Model)
		if strings.TrimSpace(p.Referer) == "" {
			p.Referer = defaultLLMReferer
		}
		if strings.TrimSpace(p.Title) == "" {
			p.Title = defaultLLMTitle
		}
	}
}

func lookupLLMKey() string {
	for _, name := range []string{"SPLICE_LLM_API_KEY", "OPENROUTER_API_KEY"} {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssets() error {
	var err error
	if c.Assets.LibraryDir, err = expandPath(c.Assets.LibraryDir); err != nil {
		return fmt.Errorf("assets.library_dir: %w", err)
	}
	exts := make([]string, 0, len(c.Assets.Extensions))
	for _, ext := range c.Assets.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Assets.Extensions = exts
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
