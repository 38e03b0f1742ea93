package stageexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

const (
	requestFileName   = "request.json"
	stderrTailLimit   = 2048
	processWaitDelay  = 2 * time.Second
	outputSnippetSize = 160
)

// CommandRunner runs command providers as child processes.
type CommandRunner struct {
	waitDelay time.Duration
}

// NewCommandRunner constructs a command runner.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{waitDelay: processWaitDelay}
}

// Execute implements Runner.
func (r *CommandRunner) Execute(ctx context.Context, stageID string, inv Invocation, timeout time.Duration) Result {
	if strings.TrimSpace(inv.Provider.Command) == "" {
		return Fail(KindIOError, "provider %q has no command", inv.Provider.Name)
	}

	scratchDir, err := os.MkdirTemp(inv.ScratchRoot, "splice-"+stageID+"-*")
	if err != nil {
		return Fail(KindIOError, "create scratch dir: %v", err)
	}
	defer os.RemoveAll(scratchDir)

	requestPath := filepath.Join(scratchDir, requestFileName)
	if err := writeRequest(requestPath, inv.Request); err != nil {
		return Fail(KindIOError, "write request: %v", err)
	}

	runCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	vars := placeholderVars(stageID, inv, scratchDir, requestPath)
	cmd := commandContext(runCtx, inv.Provider.Command, expandArgs(inv.Provider.Args, vars)...) //nolint:gosec
	cmd.Dir = scratchDir
	cmd.Env = commandEnv(inv, vars)
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Fail(KindIOError, "start %s: %v", inv.Provider.Command, err)
	}
	waitErr := cmd.Wait()

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Fail(KindTimeout, "%s exceeded %s", inv.Provider.Command, timeout)
	case errors.Is(runCtx.Err(), context.Canceled):
		return Fail(KindIOError, "%s cancelled", inv.Provider.Command)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res := Fail(KindNonzeroExit, "%s exited with status %d: %s", inv.Provider.Command, exitErr.ExitCode(), tail(stderr.String(), stderrTailLimit))
			res.Failure.ExitCode = exitErr.ExitCode()
			return res
		}
		return Fail(KindIOError, "wait %s: %v", inv.Provider.Command, waitErr)
	}

	raw, err := parseOutput(stdout.Bytes())
	if err != nil {
		res := Fail(KindUnparseable, "%s: %v", inv.Provider.Command, err)
		res.Failure.Connected = true
		return res
	}
	return Success(raw)
}

func writeRequest(path string, request any) error {
	if request == nil {
		request = map[string]any{}
	}
	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func commandEnv(inv Invocation, vars map[string]string) []string {
	env := os.Environ()
	for _, key := range []string{"project_id", "project_root", "input", "duration_us", "request", "scratch_dir", "stage"} {
		env = append(env, "SPLICE_"+strings.ToUpper(key)+"="+vars[key])
	}
	for key, value := range inv.Provider.Env {
		env = append(env, key+"="+expand(value, vars))
	}
	return env
}

// parseOutput requires stdout to hold exactly one JSON object or array.
func parseOutput(stdout []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, errors.New("empty output")
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, errors.New("output is not a JSON document: " + snippet(trimmed))
	}
	if !json.Valid(trimmed) {
		return nil, errors.New("output is not valid JSON: " + snippet(trimmed))
	}
	return json.RawMessage(append([]byte(nil), trimmed...)), nil
}

func snippet(data []byte) string {
	s := strings.Join(strings.Fields(string(data)), " ")
	if len(s) > outputSnippetSize {
		return s[:outputSnippetSize] + "..."
	}
	return s
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no stderr)"
	}
	if len(s) > limit {
		return "..." + s[len(s)-limit:]
	}
	return s
}

var _ Runner = (*CommandRunner)(nil)
