package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	ScratchDir string `toml:"scratch_dir"`
}

// Pipeline contains run-wide execution settings shared by every stage.
type Pipeline struct {
	StageTimeoutSeconds   int    `toml:"stage_timeout_seconds"`
	MaxRetriesPerProvider int    `toml:"max_retries_per_provider"`
	BackoffMode           string `toml:"backoff_mode"` // fixed | exponential
	BackoffBaseMillis     int    `toml:"backoff_base_ms"`
	BackoffMaxMillis      int    `toml:"backoff_max_ms"`
	MaxConcurrentProjects int    `toml:"max_concurrent_projects"`
}

// Stage configures one pipeline stage. Providers is the ordered fallback
// chain; an empty chain falls back to the stage's builtin default.
type Stage struct {
	Providers      []string `toml:"providers"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Model          string   `toml:"model"`
	Language       string   `toml:"language"`
	SampleRate     int      `toml:"sample_rate"`
	MaxRetries     int      `toml:"max_retries"`
}

// Provider kinds.
const (
	ProviderCommand = "command"
	ProviderLLM     = "llm"
	ProviderBuiltin = "builtin"
)

// Provider describes an external or in-process collaborator a stage can
// invoke. Which fields apply depends on Kind.
type Provider struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`

	// command
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`

	// llm
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	Referer     string  `toml:"referer"`
	Title       string  `toml:"title"`
	Temperature float64 `toml:"temperature"`

	// builtin
	Builtin string `toml:"builtin"`
}

// Ledger contains configuration for the SQLite run history.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Assets contains configuration for local stock media resolution.
type Assets struct {
	LibraryDir string   `toml:"library_dir"`
	Extensions []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format      string `toml:"format"`
	Level       string `toml:"level"`
	ProjectLogs bool   `toml:"project_logs"`
}

// Config encapsulates all configuration values for splice.
//
// Configuration sections by subsystem:
//   - Paths: project storage, logs, and scratch space
//   - Pipeline: timeouts, retry counts, and backoff shared by all stages
//   - Stages: per-stage provider chains and model hints
//   - Providers: named collaborators (command, llm, builtin)
//   - Ledger: SQLite run history
//   - Assets: local stock library used by asset resolution
//   - Logging: log format and level
type Config struct {
	Paths     Paths            `toml:"paths"`
	Pipeline  Pipeline         `toml:"pipeline"`
	Stages    map[string]Stage `toml:"stages"`
	Providers []Provider       `toml:"providers"`
	Ledger    Ledger           `toml:"ledger"`
	Assets    Assets           `toml:"assets"`
	Logging   Logging          `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("splice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and scratch directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ScratchDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Provider returns the named provider definition.
func (c *Config) Provider(name string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}

// Stage returns the settings for the named stage, or zero settings when the
// stage is not configured.
func (c *Config) Stage(name string) Stage {
	if c.Stages == nil {
		return Stage{}
	}
	return c.Stages[name]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// Redacted returns a copy of c with provider API keys masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Providers = make([]Provider, len(c.Providers))
	for i, p := range c.Providers {
		if p.APIKey != "" {
			p.APIKey = "********"
		}
		out.Providers[i] = p
	}
	return out
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
