package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/artifact"
	"splice/internal/config"
	"splice/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

type envOption func(*envSettings)

type envSettings struct {
	ledgerDisabled bool
	extra          string
}

func withLedgerDisabled() envOption {
	return func(s *envSettings) { s.ledgerDisabled = true }
}

// withConfigTOML appends raw TOML (providers, stage chains) to the config.
func withConfigTOML(extra string) envOption {
	return func(s *envSettings) { s.extra = extra }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, settings)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, s envSettings) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
scratch_dir = %q

[pipeline]
stage_timeout_seconds = 30
backoff_base_ms = 0

[ledger]
enabled = %t
path = %q

[logging]
level = "error"
project_logs = false
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.ScratchDir,
		!s.ledgerDisabled,
		cfg.Ledger.Path,
	)
	if s.extra != "" {
		content += "\n" + s.extra + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.configPath)
	return out, err
}

func (e *cliTestEnv) inputPath(id string) string {
	return filepath.Join(e.baseDir, "media", id+".mp4")
}

// createProject creates a project through the CLI. With a transcript, a
// sidecar is written next to the input so the default transcribe builtin
// can import it.
func (e *cliTestEnv) createProject(t *testing.T, id string, withTranscript bool) {
	t.Helper()
	out, err := e.run(t, "project", "create", "--id", id, "--input", e.inputPath(id), "--duration-us", "10000000")
	if err != nil {
		t.Fatalf("project create %s: %v", id, err)
	}
	requireContains(t, out, `"id": "`+id+`"`)
	if withTranscript {
		testsupport.WriteJSON(t, e.inputPath(id)+".transcript.json", sampleTranscript())
	}
}

func sampleTranscript() *artifact.Transcript {
	return &artifact.Transcript{
		Words: []artifact.Word{
			{ID: "w1", Text: "Welcome", StartUs: 0, EndUs: 600_000},
			{ID: "w2", Text: "um", StartUs: 700_000, EndUs: 900_000},
			{ID: "w3", Text: "everyone", StartUs: 4_000_000, EndUs: 4_800_000},
		},
		Segments: []artifact.Segment{
			{ID: "s1", StartUs: 0, EndUs: 900_000, Text: "Welcome um", WordIDs: []string{"w1", "w2"}},
			{ID: "s2", StartUs: 4_000_000, EndUs: 4_800_000, Text: "everyone", WordIDs: []string{"w3"}},
		},
	}
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, data)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
