package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Exit codes returned by the CLI. Problems the operator must fix before
// retrying exit with ExitUsage; pipeline failures exit with ExitFailure.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

var classes = []struct {
	marker error
	kind   string
	exit   int
}{
	{ErrValidation, "validation", ExitUsage},
	{ErrConfiguration, "configuration", ExitUsage},
	{ErrNotFound, "not_found", ExitUsage},
	{ErrTimeout, "timeout", ExitFailure},
	{ErrExternalTool, "external_tool", ExitFailure},
}

// Kind maps an error to the short classification written into run summaries.
// Unmarked errors are "transient".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.marker) {
			return c.kind
		}
	}
	return "transient"
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, c := range classes {
		if errors.Is(err, c.marker) {
			return c.exit
		}
	}
	return ExitFailure
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
