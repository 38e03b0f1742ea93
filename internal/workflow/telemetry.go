package workflow

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"splice/internal/project"
)

// Telemetry event types.
const (
	EventRunStarted      = "run_started"
	EventStageTransition = "stage_transition"
	EventProviderAttempt = "provider_attempt"
	EventRunFinished     = "run_finished"
)

// Event tail bounds for TailEvents.
const (
	DefaultEventTail = 80
	MaxEventTail     = 400
)

const eventsFile = "events.jsonl"

// TelemetryEvent is one line of a project's events.jsonl.
type TelemetryEvent struct {
	At        string `json:"at"`
	Type      string `json:"type"`
	RunID     string `json:"runId"`
	ProjectID string `json:"projectId"`
	Stage     string `json:"stage,omitempty"`
	Status    string `json:"status,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

// EventsPath returns the telemetry log for a project.
func EventsPath(p *project.Project) string {
	return filepath.Join(p.TelemetryDir(), eventsFile)
}

// ClampTail bounds a requested tail length to [1, MaxEventTail]; zero or
// negative requests get DefaultEventTail.
func ClampTail(n int) int {
	switch {
	case n <= 0:
		return DefaultEventTail
	case n > MaxEventTail:
		return MaxEventTail
	default:
		return n
	}
}

// TailEvents returns up to n of the most recent events, oldest first. A
// missing log yields no events. Lines that do not decode are skipped.
func TailEvents(path string, n int) ([]TelemetryEvent, error) {
	n = ClampTail(n)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []TelemetryEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open telemetry: %w", err)
	}
	defer file.Close()

	ring := make([][]byte, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := append([]byte(nil), line...)
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read telemetry: %w", err)
	}

	events := make([]TelemetryEvent, 0, len(ring))
	for _, line := range ring {
		var ev TelemetryEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
