package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"splice/internal/artifact"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type badge struct {
	label string
	color text.Colors
}

var badges = map[statusKind]badge{
	statusInfo:  {label: "INFO", color: text.Colors{text.FgBlue}},
	statusOK:    {label: "OK", color: text.Colors{text.FgGreen}},
	statusWarn:  {label: "WARN", color: text.Colors{text.FgYellow}},
	statusError: {label: "ERROR", color: text.Colors{text.FgRed}},
}

const statusLabelWidth = 20

// renderStatusLine formats "  Label:   [KIND] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	b := badges[kind]
	status := "[" + b.label + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if colorize {
		return b.color.Sprint(line)
	}
	return line
}

// progressKind maps a checkpoint or step status onto a display kind.
func progressKind(status string) statusKind {
	switch status {
	case artifact.ProgressDone, artifact.ProgressSkipped:
		return statusOK
	case artifact.ProgressFailed:
		return statusError
	case artifact.ProgressRunning:
		return statusWarn
	default:
		return statusInfo
	}
}

func checkKind(passed, optional bool) statusKind {
	switch {
	case passed:
		return statusOK
	case optional:
		return statusWarn
	default:
		return statusError
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	lines := []string{line, strings.Repeat("-", len(line))}
	if colorize {
		for i := range lines {
			lines[i] = badges[statusInfo].color.Sprint(lines[i])
		}
	}
	return lines
}

func writeLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// shouldColorize reports whether w is a terminal.
func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
